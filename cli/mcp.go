// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server on stdio for agent integration
package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/handlers"
)

func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rootOpts.Logger.Info().Msg("starting warmer MCP server")

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			r, engine, err := newRunner(cmd.Context(), rootOpts, database)
			if err != nil {
				return err
			}

			server := handlers.NewServer(r, database, engine, handlers.ServerOptions{
				Version:      rootOpts.Version,
				CompanyID:    rootOpts.Config.CompanyID,
				FallbackDays: rootOpts.Config.FallbackDays,
			})
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
