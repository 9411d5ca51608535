// Package diagnostics is the shared positioned-message type used across
// loading, alias sanitization, and settings application. A Policy is
// returned together with a list of these rather than failing outright:
// one bad rule or one unknown setting name does not sink the whole file.
package diagnostics

import (
	"fmt"

	"github.com/sudoersgo/policyengine/internal/charstream"
)

// Diagnostic is a human-readable message, optionally positioned.
type Diagnostic struct {
	Pos     *charstream.Position
	Message string
}

// At builds a positioned diagnostic.
func At(pos charstream.Position, message string) Diagnostic {
	return Diagnostic{Pos: &pos, Message: message}
}

// Unpositioned builds a diagnostic with no source location, for failures
// that happen above the level of a single line (e.g. I/O during include
// resolution).
func Unpositioned(message string) Diagnostic {
	return Diagnostic{Message: message}
}

// Bag accumulates diagnostics during a multi-step load.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Addf(pos charstream.Position, format string, args ...any) {
	b.items = append(b.items, At(pos, fmt.Sprintf(format, args...)))
}

func (b *Bag) Items() []Diagnostic { return b.items }
func (b *Bag) Empty() bool         { return len(b.items) == 0 }
