// Package host is the boundary to the embedding game server: the typed
// event kinds the server fires into the bus, the side-effecting calls
// action nodes may make, and the static namespaces exposed to
// expressions.
package host

import (
	"context"
	"log/slog"

	"github.com/veldt/synapse/internal/events"
)

// Host event kinds. The embedding server fires these into the bus;
// EventListener nodes subscribe by kind.
const (
	PlayerJoin     events.Kind = "PlayerJoin"
	PlayerLeave    events.Kind = "PlayerLeave"
	PlayerChat     events.Kind = "PlayerChat"
	BlockBuilt     events.Kind = "BlockBuilt"
	BlockDestroyed events.Kind = "BlockDestroyed"
	GameOver       events.Kind = "GameOver"
)

// EventKind is one catalog entry with its editor label.
type EventKind struct {
	Kind  events.Kind
	Label string
}

// EventCatalog returns the host event kinds an EventListener may
// subscribe to, in display order.
func EventCatalog() []EventKind {
	return []EventKind{
		{Kind: PlayerJoin, Label: "Player join"},
		{Kind: PlayerLeave, Label: "Player leave"},
		{Kind: PlayerChat, Label: "Player chat"},
		{Kind: BlockBuilt, Label: "Block built"},
		{Kind: BlockDestroyed, Label: "Block destroyed"},
		{Kind: GameOver, Label: "Game over"},
	}
}

// KnownKind reports whether the value names a catalog event kind.
func KnownKind(value string) bool {
	for _, ek := range EventCatalog() {
		if string(ek.Kind) == value {
			return true
		}
	}
	return false
}

// Host is the side-effect surface action nodes call into. The embedding
// server provides the real implementation; the standalone binary runs
// with LogHost.
type Host interface {
	// SendChat broadcasts a chat message to all connected players.
	SendChat(ctx context.Context, message string) error
	// DisplayLabel shows a floating text label at world coordinates for
	// the given duration.
	DisplayLabel(ctx context.Context, message string, x, y, seconds float64) error
}

// LogHost writes host calls to the log instead of a game server.
type LogHost struct {
	logger *slog.Logger
}

// NewLogHost creates a LogHost.
func NewLogHost(logger *slog.Logger) *LogHost {
	return &LogHost{logger: logger}
}

func (h *LogHost) SendChat(ctx context.Context, message string) error {
	h.logger.InfoContext(ctx, "chat", slog.String("message", message))
	return nil
}

func (h *LogHost) DisplayLabel(ctx context.Context, message string, x, y, seconds float64) error {
	h.logger.InfoContext(ctx, "label",
		slog.String("message", message),
		slog.Float64("x", x),
		slog.Float64("y", y),
		slog.Float64("seconds", seconds),
	)
	return nil
}
