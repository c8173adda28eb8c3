// ABOUTME: GraphViz visualization of cadence steps and transitions
// ABOUTME: Renders the catalog and decision rules as DOT or SVG
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/warmer/cadence"
)

// Format selects the rendered output.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
)

// GraphGenerator draws the cadences an engine runs.
type GraphGenerator struct {
	engine *cadence.Engine
}

func NewGraphGenerator(engine *cadence.Engine) *GraphGenerator {
	return &GraphGenerator{engine: engine}
}

// Stats counts what a rendered graph contains.
type Stats struct {
	Nodes int
	Edges int
}

// Render draws every cadence in the catalog. When only is non-empty, just that cadence's steps are drawn.
func (g *GraphGenerator) Render(ctx context.Context, format Format, only cadence.Name) (string, Stats, error) {
	var stats Stats
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", stats, fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() {
		_ = gv.Close()
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", stats, fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		_ = graph.Close()
	}()

	graph.SetRankDir(cgraph.LRRank)
	graph.SetLabel("Outreach cadences")

	catalog := g.engine.Catalog()
	first := make(map[cadence.Name]*cgraph.Node)
	last := make(map[cadence.Name]*cgraph.Node)

	for _, name := range catalog.Names() {
		if only != "" && name != only {
			continue
		}
		steps, _ := catalog.Steps(name)
		var prev *cgraph.Node
		for i, step := range steps {
			node, err := graph.CreateNodeByName(fmt.Sprintf("%s_%d", name, i))
			if err != nil {
				return "", stats, fmt.Errorf("failed to create step node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s #%d\n%s", name, i+1, summarize(step.Intent)))
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor(fillFor(name))
			stats.Nodes++

			if prev == nil {
				first[name] = node
			} else {
				edge, err := graph.CreateEdgeByName(fmt.Sprintf("%s_step_%d", name, i), prev, node)
				if err != nil {
					return "", stats, fmt.Errorf("failed to create step edge: %w", err)
				}
				edge.SetLabel(fmt.Sprintf("+%dd", step.DelayDays))
				stats.Edges++
			}
			prev = node
		}
		last[name] = prev
	}

	entry := func(id, label string, target cadence.Name) error {
		to, ok := first[target]
		if !ok {
			return nil
		}
		node, err := graph.CreateNodeByName(id)
		if err != nil {
			return fmt.Errorf("failed to create entry node: %w", err)
		}
		node.SetLabel(label)
		node.SetShape("ellipse")
		stats.Nodes++
		if _, err := graph.CreateEdgeByName(id+"_edge", node, to); err != nil {
			return fmt.Errorf("failed to create entry edge: %w", err)
		}
		stats.Edges++
		return nil
	}
	if err := entry("new_client", "no cadence\n0 messages", cadence.NewClientOnboarding); err != nil {
		return "", stats, err
	}
	if err := entry("untracked_client", "no cadence\nmessages sent", cadence.StandardNurture); err != nil {
		return "", stats, err
	}
	if err := entry("expiring", fmt.Sprintf("expires within\n%d days", cadence.RenewalWindowDays), cadence.RenewalPush); err != nil {
		return "", stats, err
	}

	re, hasRe := first[cadence.ReEngagement]
	for _, name := range catalog.Names() {
		end := last[name]
		if end == nil || !hasRe {
			continue
		}
		if name == cadence.ReEngagement && g.engine.Exhaustion() == cadence.HoldAfterReEngagement {
			hold, err := graph.CreateNodeByName("hold")
			if err != nil {
				return "", stats, fmt.Errorf("failed to create hold node: %w", err)
			}
			hold.SetLabel("hold")
			hold.SetShape("doublecircle")
			stats.Nodes++
			if _, err := graph.CreateEdgeByName("hold_edge", end, hold); err != nil {
				return "", stats, fmt.Errorf("failed to create hold edge: %w", err)
			}
			stats.Edges++
			continue
		}
		edge, err := graph.CreateEdgeByName(fmt.Sprintf("%s_exhausted", name), end, re)
		if err != nil {
			return "", stats, fmt.Errorf("failed to create transition edge: %w", err)
		}
		edge.SetLabel("exhausted")
		edge.SetStyle("dashed")
		stats.Edges++
	}

	renderFormat := graphviz.XDOT
	if format == FormatSVG {
		renderFormat = graphviz.SVG
	}
	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, renderFormat, &buf); err != nil {
		return "", stats, fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), stats, nil
}

func summarize(intent string) string {
	const limit = 40
	if i := strings.IndexAny(intent, ".,"); i > 0 && i < limit {
		return intent[:i]
	}
	if len(intent) > limit {
		return intent[:limit] + "..."
	}
	return intent
}

func fillFor(name cadence.Name) string {
	switch name {
	case cadence.LeadEngagement:
		return "lightyellow"
	case cadence.NewClientOnboarding:
		return "lightgreen"
	case cadence.RenewalPush:
		return "lightsalmon"
	case cadence.ReEngagement:
		return "lightgrey"
	default:
		return "lightblue"
	}
}
