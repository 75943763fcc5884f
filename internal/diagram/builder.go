package diagram

import (
	"fmt"
	"sort"

	"github.com/veldt/synapse/pkg/schema"
)

// Build constructs a Model from a workflow context. The groups map is
// keyed by node kind name (as reported by the type catalog) and is used
// to pick renderer shapes; missing entries are fine.
func Build(wc *schema.WorkflowContext, title string, groups map[string]string) (*Model, error) {
	if wc == nil {
		return nil, fmt.Errorf("diagram: nil context")
	}

	ids := make(map[string]bool, len(wc.Nodes))
	for _, n := range wc.Nodes {
		if n.ID != "" {
			ids[n.ID] = true
		}
	}

	model := &Model{Title: title}
	for _, n := range wc.Nodes {
		if n.ID == "" {
			continue
		}
		model.Nodes = append(model.Nodes, &Node{
			ID:    n.ID,
			Label: nodeLabel(n),
			Group: groups[n.Name],
		})

		// deterministic edge order per node
		outputs := make([]string, 0, len(n.State.Outputs))
		for name := range n.State.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)

		for _, name := range outputs {
			next := n.State.Outputs[name]
			if next == "" || !ids[next] {
				continue
			}
			edge := Edge{From: n.ID, To: next}
			if len(n.State.Outputs) > 1 {
				edge.Label = name
			}
			model.Edges = append(model.Edges, edge)
		}
	}
	return model, nil
}

func nodeLabel(n schema.NodeState) string {
	if n.Name == n.ID {
		return n.Name
	}
	return fmt.Sprintf("%s\n(%s)", n.Name, n.ID)
}
