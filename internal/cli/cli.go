// Package cli implements the multinet command-line interface.
//
// The CLI runs the HTTP service, checks payloads and graphs offline, and
// manages the metadata cache. It is built on cobra and logs through
// charmbracelet/log.
//
// # Commands
//
//   - serve: Run the HTTP API
//   - validate: Check an upload file without writing it
//   - graph check: Check an edge table's references against the configured store
//   - cache: Clear the metadata cache or print its directory
//   - completion: Generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// registers log-backed observability hooks. Loggers are passed through
// context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/multinet/pkg/buildinfo"
	"github.com/matzehuels/multinet/pkg/cache"
	"github.com/matzehuels/multinet/pkg/config"
)

// appName is the application name used for directories and display.
const appName = "multinet"

const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Multinet stores workspace tables and graphs",
		Long:         `Multinet ingests tabular and tree-shaped data into workspaces of node and edge tables, validates it, and assembles graphs from edge tables whose references all resolve.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("MULTINET_CONFIG"), "path to a TOML config file")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the --config file. The configured log level applies
// unless --verbose already lowered it.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	if lvl, err := cfg.Level(); err == nil && lvl < c.Logger.GetLevel() {
		c.Logger.SetLevel(lvl)
	}
	return cfg, nil
}

// openCache opens the configured cache. A file cache without a directory
// uses the user cache directory.
func openCache(ctx context.Context, cfg cache.Config) (cache.Cache, error) {
	if cfg.Backend == cache.BackendFile && cfg.Dir == "" {
		dir, err := cacheDir()
		if err != nil {
			return nil, err
		}
		cfg.Dir = dir
	}
	return cache.Open(ctx, cfg)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/multinet/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
