package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/multinet/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached metadata records",
		Long: `Drop cached metadata records from the configured cache backend. With
--workspace only that workspace's records are dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			switch cfg.Cache.Backend {
			case "", cache.BackendNone:
				printInfo("Caching is disabled")
				return nil
			case cache.BackendMemory:
				printWarning("The memory cache lives inside the server process; restart it to clear")
				return nil
			}

			ch, err := openCache(ctx, cfg.Cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer ch.Close()

			keyer := cfg.Cache.Keyer()
			prefix := keyer.Prefix()
			if workspace != "" {
				prefix = keyer.WorkspacePrefix(workspace)
			}
			if err := ch.Clear(ctx, prefix); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared cached metadata")
			printDetail("Backend: %s, prefix: %s", cfg.Cache.Backend, prefix)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "only clear this workspace")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				if dir, err = cacheDir(); err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
			}
			fmt.Fprintln(stdout, dir)
			return nil
		},
	}
}
