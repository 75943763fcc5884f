package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a Model as a PNG image using graphviz. Returns
// the PNG bytes.
func RenderImage(model *Model) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV != nil && toGV != nil {
			e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
			if eErr == nil && edge.Label != "" {
				e.SetLabel(edge.Label)
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// applyNodeStyle sets shape and fill per catalog group.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)

	switch node.Group {
	case "triggers":
		gvNode.SetShape(cgraph.EllipseShape)
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case "flow":
		gvNode.SetShape(cgraph.DiamondShape)
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	case "data":
		gvNode.SetShape(cgraph.HexagonShape)
		gvNode.SetFillColor("#5b2c6f")
		gvNode.SetFontColor("white")
	case "actions":
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case "operators":
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#6b6b6b")
		gvNode.SetFontColor("white")
	default:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	}
}
