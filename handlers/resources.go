// ABOUTME: MCP resource handlers for exposing cadence data
// ABOUTME: Provides read-only access to the cadence catalog via warmer:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const CadencesURI = "warmer://cadences"

type ResourceHandlers struct {
	catalog *cadence.Catalog
}

func NewResourceHandlers(catalog *cadence.Catalog) *ResourceHandlers {
	return &ResourceHandlers{catalog: catalog}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "warmer://") {
		return nil, fmt.Errorf("invalid URI scheme: expected warmer://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "warmer://"), "/")
	if parts[0] != "cadences" {
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}

	var payload any
	if len(parts) == 1 || parts[1] == "" {
		all := make(map[string][]models.Step)
		for _, name := range h.catalog.Names() {
			steps, _ := h.catalog.Steps(name)
			all[string(name)] = steps
		}
		payload = all
	} else {
		name, ok := cadence.ParseName(parts[1])
		if !ok {
			return nil, fmt.Errorf("unknown cadence: %s", parts[1])
		}
		steps, ok := h.catalog.Steps(name)
		if !ok {
			return nil, fmt.Errorf("cadence not in catalog: %s", name)
		}
		payload = steps
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cadences: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
