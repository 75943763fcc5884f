// Command synapse runs the workflow engine standalone: it restores the
// last persisted context (or loads one from a file), logs every host
// call, and streams trace output until interrupted. Game servers embed
// the engine package directly; this binary exists for development and
// for validating context documents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/veldt/synapse/internal/engine"
	"github.com/veldt/synapse/internal/host"
	"github.com/veldt/synapse/internal/logging"
	"github.com/veldt/synapse/internal/store"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/synapse/
var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Println(version)
			return
		case "diagram":
			if err := renderDiagram(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}

	cfg := loadConfig()
	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Logger:   logger,
		Host:     host.NewLogHost(logger),
		Store:    st,
		MaxSteps: cfg.MaxSteps,
		PoolSize: cfg.PoolSize,
		Server: host.ServerInfo{
			Name:    cfg.ServerName,
			Version: version,
			Started: time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer eng.Shutdown(ctx)

	if len(os.Args) > 1 {
		// synapse <context.json> loads the given document, replacing
		// whatever revision was persisted.
		raw, err := os.ReadFile(os.Args[1])
		if err != nil {
			return fmt.Errorf("read context document: %w", err)
		}
		if _, err := eng.LoadDocument(ctx, json.RawMessage(raw)); err != nil {
			return fmt.Errorf("load %s: %w", os.Args[1], err)
		}
	} else if err := restoreLast(ctx, eng, st, logger); err != nil {
		return err
	}

	logger.Info("synapse running",
		slog.String("version", version),
		slog.String("db", cfg.DBPath),
		slog.Int("node_types", len(eng.NodeTypes())),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Info("shutting down", slog.String("signal", s.String()))
	return nil
}

// restoreLast loads the newest persisted context revision, if any.
func restoreLast(ctx context.Context, eng *engine.Engine, st store.Store, logger *slog.Logger) error {
	rec, err := st.LoadContext(ctx)
	if err != nil {
		logger.Info("no persisted context; starting empty")
		return nil
	}
	if _, err := eng.LoadDocument(ctx, rec.Document); err != nil {
		return fmt.Errorf("restore revision %d: %w", rec.Revision, err)
	}
	logger.Info("context restored", slog.Int64("revision", rec.Revision))
	return nil
}

func newLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.LogFormat == "json" {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(logging.NewCorrelationHandler(inner))
}
