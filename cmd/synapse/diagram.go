package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/veldt/synapse/internal/diagram"
	"github.com/veldt/synapse/internal/engine"
	"github.com/veldt/synapse/pkg/schema"
)

// renderDiagram implements `synapse diagram <context.json> [mermaid|png]`.
// Mermaid text goes to stdout; PNG bytes go to <context>.png.
func renderDiagram(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: synapse diagram <context.json> [mermaid|png]")
	}
	path := args[0]
	format := "mermaid"
	if len(args) > 1 {
		format = args[1]
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read context document: %w", err)
	}
	wc, err := schema.DecodeContext(raw)
	if err != nil {
		return err
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	model, err := diagram.Build(wc, title, nodeGroups())
	if err != nil {
		return err
	}

	switch format {
	case "mermaid":
		fmt.Print(diagram.RenderMermaid(model))
		return nil
	case "png":
		png, err := diagram.RenderImage(model)
		if err != nil {
			return err
		}
		out := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Println(out)
		return nil
	default:
		return fmt.Errorf("unknown diagram format %q", format)
	}
}

// nodeGroups maps every registered node kind to its catalog group by
// building a throwaway engine.
func nodeGroups() map[string]string {
	eng, err := engine.New(engine.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil
	}
	defer eng.Shutdown(context.Background())

	groups := make(map[string]string)
	for _, nt := range eng.NodeTypes() {
		groups[nt.Name] = nt.Group
	}
	return groups
}
