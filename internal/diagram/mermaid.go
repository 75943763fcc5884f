package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a Model as a Mermaid flowchart string.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", edge.Label)
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(edge.From), label, mermaidSafeID(edge.To)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef triggers fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef flow fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef data fill:#5b2c6f,stroke:#3f1e4d,color:#fff\n")
	b.WriteString("    classDef actions fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef operators fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	for _, node := range model.Nodes {
		if node.Group != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), node.Group))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a node definition with a shape per group:
// triggers are stadiums, flow nodes diamonds, data nodes hexagons,
// everything else a box.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := firstLine(node.Label)

	switch node.Group {
	case "triggers":
		return fmt.Sprintf("%s([%q])", id, label)
	case "flow":
		return fmt.Sprintf("%s{%q}", id, label)
	case "data":
		return fmt.Sprintf("%s{{%q}}", id, label)
	case "operators":
		return fmt.Sprintf("%s[[%q]]", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
