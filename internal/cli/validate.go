package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/ingest"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/validation"
)

// validateOpts holds the flags of the validate command.
type validateOpts struct {
	format    string
	name      string
	key       string
	overwrite bool
	delimiter string
	columns   string
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var opts validateOpts

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check an upload file without storing it",
		Long: `Decode, parse, validate and typecast an upload file exactly as the server
would, and report every problem found. Nothing is written.

The format is inferred from the extension (.csv, .json, .nwk/.newick/.tree)
unless --format is given. JSON files default to d3_json.

  multinet validate people.csv --key id --columns people.meta.json
  multinet validate tree.json --format nested_json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "csv, d3_json, newick or nested_json")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "table name (default: file name)")
	cmd.Flags().StringVar(&opts.key, "key", "", "CSV column to use as the key")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "let --key replace an existing _key column")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", "", "CSV field delimiter (default ',')")
	cmd.Flags().StringVar(&opts.columns, "columns", "", "JSON file with column metadata: [{\"key\": ..., \"type\": ...}]")

	return cmd
}

func (c *CLI) runValidate(cmd *cobra.Command, path string, opts validateOpts) error {
	logger := loggerFromContext(cmd.Context())
	st := startStep(logger)

	format := opts.format
	if format == "" {
		format = formatFromPath(path)
	}
	name := opts.name
	if name == "" {
		name = tableNameFromPath(path)
	}

	csvOpts, err := opts.csvOptions()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	logger.Debug("validating", "file", path, "format", format, "name", name, "bytes", len(data))

	up, err := ingest.Prepare(format, name, data, csvOpts)
	if list, ok := validation.Errors(err); ok {
		printValidationErrors(list)
		return fmt.Errorf("%s is not valid", path)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, styleTitle.Render(filepath.Base(path))+styleDim.Render(" ("+format+")"))
	for _, t := range up.Tables {
		printTable(t.Name, t.Edge, len(t.Rows))
	}
	st.done("validated", "format", format, "tables", len(up.Tables), "rows", up.RowCount())
	printSuccess("%s is valid", path)
	return nil
}

func (o validateOpts) csvOptions() (ingest.CSVOptions, error) {
	out := ingest.CSVOptions{Key: o.key, Overwrite: o.overwrite}
	if o.delimiter != "" {
		if utf8.RuneCountInString(o.delimiter) != 1 {
			return out, errs.New(errs.ErrCodeInvalidInput, "delimiter must be a single character")
		}
		out.Delimiter, _ = utf8.DecodeRuneInString(o.delimiter)
	}
	if o.columns != "" {
		raw, err := os.ReadFile(o.columns)
		if err != nil {
			return out, fmt.Errorf("read columns: %w", err)
		}
		var cols []metadata.Column
		if err := json.Unmarshal(raw, &cols); err != nil {
			return out, errs.Wrap(errs.ErrCodeInvalidMetadata, err, "decode %s", o.columns)
		}
		out.Columns = cols
	}
	return out, nil
}

// formatFromPath infers the upload format from a file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nwk", ".newick", ".tree", ".tre":
		return ingest.FormatNewick
	case ".json":
		return ingest.FormatD3
	default:
		return ingest.FormatCSV
	}
}

// tableNameFromPath turns a file name into a table name: the extension is
// dropped and characters outside [A-Za-z0-9_-] become underscores.
func tableNameFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, base)
}
