package evaluator

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError marks an entity whose data an evaluator cannot use. The
// entity is skipped for the tick.
type ValidationError struct {
	Kind   string
	ID     uuid.UUID
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Kind, e.ID, e.Reason)
}
