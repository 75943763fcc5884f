// Package nodes implements the built-in node kinds: the triggers that
// originate execution chains (EventListener, Interval, Cron), the flow
// kinds (If, Set, Wait), the data kinds (Query and the generated
// operator kinds), and the host action kinds (SendChat, DisplayLabel).
package nodes

import (
	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/host"
)

// Group names used in the editor catalog.
const (
	GroupTriggers  = "triggers"
	GroupFlow      = "flow"
	GroupData      = "data"
	GroupActions   = "actions"
	GroupOperators = "operators"
)

// Deps carries the shared facilities node kinds close over. One Deps
// value is built per engine and handed to every factory.
type Deps struct {
	Host host.Host
	Eval *expressions.Evaluator
	JQ   *expressions.JQEngine
	Ops  *expressions.OperatorTable
}
