// ABOUTME: MCP server assembly
// ABOUTME: Registers outreach tools, the cadence graph tool and cadence resources
package handlers

import (
	"database/sql"

	"github.com/harperreed/warmer/cadence"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerOptions carries what the tools need beyond the runner.
type ServerOptions struct {
	Version      string
	CompanyID    int64
	FallbackDays int
}

// NewServer builds the MCP server with every warmer tool registered.
func NewServer(r Runner, database *sql.DB, engine *cadence.Engine, opts ServerOptions) *mcp.Server {
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	outreach := NewOutreachHandlers(r, database, engine, opts.CompanyID, opts.FallbackDays)
	vizHandlers := NewVizHandlers(engine)
	resources := NewResourceHandlers(engine.Catalog())

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "warmer",
		Version: opts.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_outreach",
		Description: "Run the outreach cadence for every due client and send the generated emails",
	}, outreach.RunOutreach)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_outreach",
		Description: "Show what the next run would do for each due client without sending anything",
	}, outreach.PreviewOutreach)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_warming_log",
		Description: "List warming log entries, newest first, with optional client, run and status filters",
	}, outreach.ListWarmingLog)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cadence_graph",
		Description: "Generate a GraphViz DOT graph of the cadence steps and transitions",
	}, vizHandlers.CadenceGraph)

	server.AddResource(&mcp.Resource{
		URI:         CadencesURI,
		Name:        "cadences",
		Description: "The cadence catalog with every step's delay and intent",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	return server
}
