package host

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/veldt/synapse/internal/expressions"
)

// ServerInfo is the static server identity exposed under the Server
// namespace.
type ServerInfo struct {
	Name    string
	Version string
	Started time.Time
}

// RegisterNamespaces installs the Server and Math namespaces into the
// expression resolver. Paths resolve lazily on each evaluation.
func RegisterNamespaces(table *expressions.NamespaceTable, info ServerInfo) error {
	server := map[string]expressions.Accessor{
		"name": func(context.Context) (any, error) {
			return info.Name, nil
		},
		"version": func(context.Context) (any, error) {
			return info.Version, nil
		},
		"uptime": func(context.Context) (any, error) {
			return time.Since(info.Started).Seconds(), nil
		},
		"time": func(context.Context) (any, error) {
			return float64(time.Now().UnixMilli()), nil
		},
	}
	if err := table.Register("Server", server); err != nil {
		return err
	}

	mathNS := map[string]expressions.Accessor{
		"pi": func(context.Context) (any, error) {
			return math.Pi, nil
		},
		"e": func(context.Context) (any, error) {
			return math.E, nil
		},
		"random": func(context.Context) (any, error) {
			return rand.Float64(), nil
		},
	}
	return table.Register("Math", mathNS)
}
