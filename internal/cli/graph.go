package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/multinet/pkg/graphbuild"
	"github.com/matzehuels/multinet/pkg/store"
	"github.com/matzehuels/multinet/pkg/validation"
)

// graphCommand creates the graph command group.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect graphs in the configured store",
	}
	cmd.AddCommand(c.graphCheckCommand())
	return cmd
}

// graphCheckCommand creates the "graph check" subcommand.
func (c *CLI) graphCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check WORKSPACE EDGE_TABLE",
		Short: "Check that every edge references an existing row",
		Long: `Resolve every _from and _to reference of an edge table against the
configured store, as graph creation would, without creating a graph.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			sp := startStep(loggerFromContext(ctx))
			plan, err := graphbuild.NewBuilder(st, loggerFromContext(ctx)).Check(ctx, args[0], args[1])
			if list, ok := validation.Errors(err); ok {
				printValidationErrors(list)
				return fmt.Errorf("edge table %s has unresolved references", args[1])
			}
			if err != nil {
				return err
			}

			sp.done("checked edge table", "edges", plan.Edges)
			printSuccess("%s resolves", args[1])
			printKeyValue("from", strings.Join(plan.FromTables, ", "))
			printKeyValue("to", strings.Join(plan.ToTables, ", "))
			return nil
		},
	}
}
