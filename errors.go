package hopper

import (
	"errors"
	"fmt"
)

// ErrInvalidParameters is wrapped by all errors raised before an integration or a search starts.
var ErrInvalidParameters = errors.New("invalid parameters")

// DivergedError is returned when a run reaches no outcome, either because the step cap was hit
// or because the state is no longer finite.
type DivergedError struct {
	Steps uint64
	State KinematicState
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("trajectory diverged after %d steps at t=%.3fs (x=%f, y=%f)", e.Steps, e.State.T, e.State.Position.X, e.State.Position.Y)
}
