package task

import (
	"fmt"

	"github.com/taskhive/taskhive/pkg/cerr"
)

// Machine-readable reasons reported to callers alongside the error code.
const (
	ReasonInvalidTransition = "invalid_transition"
	ReasonAlreadyClaimed    = "already_claimed"
	ReasonNotEligible       = "not_eligible"
	ReasonCapacityExceeded  = "capacity_exceeded"
	ReasonNotFound          = "not_found"
)

// ErrInvalidTransition names the current status and the rejected event.
func ErrInvalidTransition(status Status, event string) error {
	return cerr.NewReasonError(cerr.FailedPrecondition, ReasonInvalidTransition,
		fmt.Sprintf("status %q does not permit %s", status, event), nil)
}

func ErrAlreadyClaimed(taskID string) error {
	return cerr.NewReasonError(cerr.Aborted, ReasonAlreadyClaimed,
		fmt.Sprintf("task %s is already claimed by another assistant", taskID), nil)
}

func ErrNotEligible(msg string) error {
	return cerr.NewReasonError(cerr.FailedPrecondition, ReasonNotEligible, msg, nil)
}

func ErrCapacityExceeded(assistantID string) error {
	return cerr.NewReasonError(cerr.ResourceExhausted, ReasonCapacityExceeded,
		fmt.Sprintf("assistant %s is at the active task ceiling", assistantID), nil)
}

func ErrGone(taskID string) error {
	return cerr.NewReasonError(cerr.NotFound, ReasonNotFound,
		fmt.Sprintf("task %s is no longer available", taskID), nil)
}
