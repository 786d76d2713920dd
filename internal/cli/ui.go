package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/multinet/pkg/validation"
)

// stdout receives status output. Tests replace it.
var stdout io.Writer = os.Stdout

var (
	accent = lipgloss.Color("36")
	muted  = lipgloss.Color("240")

	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	styleDim   = lipgloss.NewStyle().Foreground(muted)
	styleValue = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleCount = lipgloss.NewStyle().Foreground(accent)
	styleKey   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// marker is a colored status glyph printed in front of a message.
type marker struct {
	glyph string
	style lipgloss.Style
}

var (
	markOK   = marker{"✓", lipgloss.NewStyle().Foreground(lipgloss.Color("35"))}
	markFail = marker{"✗", lipgloss.NewStyle().Foreground(lipgloss.Color("167"))}
	markWarn = marker{"!", styleWarn}
	markInfo = marker{"›", lipgloss.NewStyle().Foreground(lipgloss.Color("245"))}
)

func (m marker) printf(format string, args ...any) {
	fmt.Fprintln(stdout, m.style.Render(m.glyph)+" "+fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { markOK.printf(format, args...) }
func printError(format string, args ...any)   { markFail.printf(format, args...) }
func printInfo(format string, args ...any)    { markInfo.printf(format, args...) }

func printWarning(format string, args ...any) {
	markWarn.printf("%s", styleWarn.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+styleDim.Render(fmt.Sprintf(format, args...)))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+styleValue.Render(value))
}

// printTable prints one "name · kind · N rows" summary line.
func printTable(name string, edge bool, rows int) {
	kind := "node"
	if edge {
		kind = "edge"
	}
	fmt.Fprintln(stdout, "  "+styleValue.Render(name)+styleDim.Render(" · "+kind+" · ")+
		styleCount.Render(fmt.Sprintf("%d rows", rows)))
}

func printValidationErrors(list []validation.Error) {
	printError("%d validation problems", len(list))
	for _, e := range list {
		printDetail("%s: %s", e.Kind, e.Error())
	}
}
