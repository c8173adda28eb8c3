// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the cadence_graph tool for agents
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	engine *cadence.Engine
}

func NewVizHandlers(engine *cadence.Engine) *VizHandlers {
	return &VizHandlers{engine: engine}
}

type CadenceGraphInput struct {
	Cadence string `json:"cadence,omitempty" jsonschema:"Only draw this cadence (default all)"`
}

type CadenceGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) CadenceGraph(ctx context.Context, request *mcp.CallToolRequest, input CadenceGraphInput) (*mcp.CallToolResult, CadenceGraphOutput, error) {
	var only cadence.Name
	if input.Cadence != "" {
		name, ok := cadence.ParseName(input.Cadence)
		if !ok {
			return nil, CadenceGraphOutput{}, fmt.Errorf("unknown cadence: %s", input.Cadence)
		}
		only = name
	}

	dot, stats, err := viz.NewGraphGenerator(h.engine).Render(ctx, viz.FormatDOT, only)
	if err != nil {
		return nil, CadenceGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, CadenceGraphOutput{
		DOTSource: dot,
		NodeCount: stats.Nodes,
		EdgeCount: stats.Edges,
	}, nil
}
