package evaluation

import (
	"fmt"
	"time"
)

// The lifecycle shared by both kinds:
//
//	pending --start--> in_progress --complete--> completed --review--> reviewed
//
// These functions mutate the instance in memory only; persisting the result
// (and running fan-out atomically with it) is the service's job.

// applyStart moves a pending instance to in_progress. Calling it again on an
// in_progress instance is a no-op rather than an error; StartedAt is only
// stamped once.
func applyStart(inst *Instance, now time.Time) error {
	switch inst.Status {
	case StatusPending, StatusInProgress:
	default:
		return fmt.Errorf("%w: cannot start %s evaluation", ErrInvalidTransition, inst.Status)
	}
	inst.Status = StatusInProgress
	if inst.StartedAt == nil {
		inst.StartedAt = &now
	}
	return nil
}

// applyComplete marks the instance completed and reports whether this call is
// the transition *into* completed. Fan-out must fire only on that transition,
// so a repeated complete (double-click, retry after timeout) never fans out
// twice.
func applyComplete(inst *Instance, now time.Time) bool {
	prior := inst.Status
	if prior != StatusReviewed {
		inst.Status = StatusCompleted
	}
	if inst.CompletedAt == nil {
		inst.CompletedAt = &now
	}
	alreadyDone := prior == StatusCompleted || prior == StatusReviewed
	return inst.Type == TypeSelf && !alreadyDone
}

// applyReview moves a completed instance to reviewed. Reviewing an instance
// that was never completed is a state error; re-reviewing is a no-op.
func applyReview(inst *Instance) error {
	switch inst.Status {
	case StatusCompleted, StatusReviewed:
	default:
		return fmt.Errorf("%w: cannot review %s evaluation", ErrInvalidTransition, inst.Status)
	}
	inst.Status = StatusReviewed
	return nil
}
