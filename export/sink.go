package export

import (
	"context"

	maitre "github.com/platewise/maitre"
)

// Sink persists a StructuredResult to a terminal storage target. Saving is
// one-way from the engine's point of view; Load exists for consumers and
// round-trip verification.
type Sink interface {
	Save(ctx context.Context, result maitre.StructuredResult) (resultID string, err error)
	Load(ctx context.Context, resultID string) (maitre.StructuredResult, error)
	Close() error
}
