package validation

import (
	"fmt"
	"sort"

	"github.com/veldt/synapse/pkg/schema"
)

// analyzeWiring performs graph analysis on the node wiring: cycle
// detection (Kahn's algorithm) and reachability from root nodes (BFS).
// Both produce warnings only; cycles are legal at runtime, the step
// ceiling terminates them, and unwired nodes may be work in progress in
// the editor.
func analyzeWiring(wc *schema.WorkflowContext) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	ids := make(map[string]bool, len(wc.Nodes))
	for _, n := range wc.Nodes {
		if n.ID != "" {
			ids[n.ID] = true
		}
	}

	// edges[id] = wiring targets of node id, incoming[id] = wire count
	// into node id.
	edges := make(map[string][]string, len(wc.Nodes))
	incoming := make(map[string]int, len(wc.Nodes))
	for _, n := range wc.Nodes {
		if n.ID == "" {
			continue
		}
		seen := make(map[string]bool, len(n.State.Outputs))
		for _, next := range n.State.Outputs {
			if next == "" || !ids[next] || seen[next] {
				continue
			}
			seen[next] = true
			edges[n.ID] = append(edges[n.ID], next)
			incoming[next]++
		}
	}

	// Kahn's algorithm: nodes left unvisited sit on a cycle.
	queue := make([]string, 0, len(ids))
	for id := range ids {
		if incoming[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	remaining := make(map[string]int, len(incoming))
	for id, deg := range incoming {
		remaining[id] = deg
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range edges[id] {
			remaining[next]--
			if remaining[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(ids) {
		result.AddWarning("/nodes", schema.ErrCodeValidation,
			"wiring contains a cycle; chains through it terminate at the step ceiling")
	}

	// Reachability from roots. On a fully cyclic graph there are no
	// roots and every node is flagged, which is the honest answer.
	reachable := make(map[string]bool, len(ids))
	var bfs []string
	for id := range ids {
		if incoming[id] == 0 {
			reachable[id] = true
			bfs = append(bfs, id)
		}
	}
	for len(bfs) > 0 {
		id := bfs[0]
		bfs = bfs[1:]
		for _, next := range edges[id] {
			if !reachable[next] {
				reachable[next] = true
				bfs = append(bfs, next)
			}
		}
	}

	var orphans []string
	for id := range ids {
		if !reachable[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		result.AddWarning("/nodes", schema.ErrCodeValidation,
			fmt.Sprintf("node %q is not reachable from any root node", id))
	}

	return result
}
