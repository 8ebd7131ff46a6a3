package autodiff

import "errors"

var (
	// ErrNoCheckpoint is returned when closing a checkpoint while none is open.
	ErrNoCheckpoint = errors.New("autodiff: no open checkpoint")

	// ErrCheckpointOrder is returned when closing a checkpoint that is not the innermost one.
	ErrCheckpointOrder = errors.New("autodiff: checkpoint closed out of order")

	// ErrNestedOpen is returned by Reset and Release while checkpoints are still open.
	ErrNestedOpen = errors.New("autodiff: checkpoints still open")

	// ErrStaleVar reports a handle whose node was discarded by a rewind.
	ErrStaleVar = errors.New("autodiff: stale variable")

	// ErrForeignVar reports a handle that belongs to a different tape.
	ErrForeignVar = errors.New("autodiff: variable belongs to another tape")

	// ErrNilVar reports the zero Var.
	ErrNilVar = errors.New("autodiff: nil variable")

	// ErrOutOfScope reports a handle created before the innermost checkpoint
	// passed to a scope-limited gradient.
	ErrOutOfScope = errors.New("autodiff: variable outside the current nested scope")

	// ErrInvalidConfig is returned for configurations that fail validation.
	ErrInvalidConfig = errors.New("autodiff: invalid config")
)
