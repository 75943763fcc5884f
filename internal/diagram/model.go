// Package diagram renders the wiring of a persisted workflow context as
// Mermaid flowchart text or a PNG image. Tooling only; the engine never
// depends on it.
package diagram

// Model is the intermediate representation used by all renderers.
type Model struct {
	Title string
	Nodes []*Node
	Edges []Edge
}

// Node is one workflow node in the diagram.
type Node struct {
	ID    string
	Label string
	// Group is the node kind's catalog group (triggers, flow, data,
	// actions, operators). Unknown kinds get an empty group.
	Group string
}

// Edge is one output wire. Label carries the output name when the node
// has more than one output.
type Edge struct {
	From  string
	To    string
	Label string
}
