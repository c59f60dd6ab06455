package ingestion

import "context"

// Signals carries a running job's pause/cancel controls into the engine,
// per spec.md §4.6's "Cancellation / pause" paragraph: cancel is
// edge-triggered (checked, then torn down), pause is level-triggered (the
// engine blocks until cleared).
type Signals struct {
	Cancel <-chan struct{}
	Pause  <-chan struct{}
	Resume <-chan struct{}
}

// cancelledError is the type behind ErrCancelled.
type cancelledError struct{}

func (cancelledError) Error() string { return "ingestion run cancelled" }

// ErrCancelled is the sentinel checkpoint returns on cancellation. Run
// does not return it: it reports cancellation as Result.Cancelled with a
// nil error.
var ErrCancelled error = cancelledError{}

// checkpoint returns ErrCancelled if cancel has fired, blocks until resume
// or cancel if pause has fired, and otherwise returns immediately. Called
// at every window boundary and between enrichment batches.
func checkpoint(ctx context.Context, sig Signals) error {
	select {
	case <-sig.Cancel:
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case <-sig.Pause:
		select {
		case <-sig.Resume:
			return nil
		case <-sig.Cancel:
			return ErrCancelled
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return nil
	}
}
