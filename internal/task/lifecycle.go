package task

import (
	"time"

	"github.com/taskhive/taskhive/pkg/cerr"
)

// The lifecycle state machine. Each method guards one transition of the
// table and applies its side effects on the entity; callers (the engine)
// are responsible for assistant-side guards, capacity accounting and
// persistence, so that guard evaluation and commit form one atomic unit.
//
//	pending            --claim/assign-->        in_progress
//	in_progress        --complete-->            completed
//	completed          --approve-->             approved (terminal)
//	completed          --request_revision-->    revision_requested
//	revision_requested --complete-->            completed
//	in_progress,
//	revision_requested --reject-->              pending
//	pending,
//	in_progress        --reassign/unassign-->   in_progress / pending
//	pending            --cancel-->              cancelled (terminal)

// Claim assigns the task to an assistant from the marketplace.
func (t *Task) Claim(assistantID string, now time.Time) error {
	if t.Status != StatusPending {
		return ErrInvalidTransition(t.Status, "claim")
	}
	t.AssistantID = assistantID
	t.Status = StatusInProgress
	t.ClaimedAt = &now
	t.UpdatedAt = now
	return nil
}

// Complete records the assistant's result. Valid from in_progress and from
// revision_requested, any number of times around the revision loop.
func (t *Task) Complete(assistantID, detailedResult, completionSummary string, now time.Time) error {
	if t.Status != StatusInProgress && t.Status != StatusRevisionRequested {
		return ErrInvalidTransition(t.Status, "complete")
	}
	if t.AssistantID != assistantID {
		return cerr.NewReasonError(cerr.PermissionDenied, "forbidden", "only the assigned assistant may complete this task", nil)
	}
	if detailedResult == "" {
		return cerr.NewError(cerr.InvalidArgument, "detailed_result must not be empty", nil)
	}
	t.Status = StatusCompleted
	t.DetailedResult = detailedResult
	t.CompletionSummary = completionSummary
	t.CompletedBy = assistantID
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// Approve closes the task with the owning client's rating and feedback.
func (t *Task) Approve(clientID string, rating int, feedback string, now time.Time) error {
	if t.Status != StatusCompleted {
		return ErrInvalidTransition(t.Status, "approve")
	}
	if t.ClientID != clientID {
		return cerr.NewReasonError(cerr.PermissionDenied, "forbidden", "only the owning client may approve this task", nil)
	}
	if rating < 1 || rating > 5 {
		return cerr.NewError(cerr.InvalidArgument, "rating must be an integer between 1 and 5", nil)
	}
	if feedback == "" {
		return cerr.NewError(cerr.InvalidArgument, "feedback must not be empty", nil)
	}
	t.Status = StatusApproved
	t.ClientRating = rating
	t.ClientFeedback = feedback
	t.ApprovedAt = &now
	// The assignment ends with the task; CompletedBy keeps the history.
	t.AssistantID = ""
	t.UpdatedAt = now
	return nil
}

// RequestRevision sends a completed task back to its assistant. The task
// keeps its assistant and claimed_at, so the revision loop can repeat.
func (t *Task) RequestRevision(clientID, feedback, additionalRequirements string, now time.Time) error {
	if t.Status != StatusCompleted {
		return ErrInvalidTransition(t.Status, "request_revision")
	}
	if t.ClientID != clientID {
		return cerr.NewReasonError(cerr.PermissionDenied, "forbidden", "only the owning client may request a revision", nil)
	}
	if feedback == "" {
		return cerr.NewError(cerr.InvalidArgument, "feedback must not be empty", nil)
	}
	t.Status = StatusRevisionRequested
	t.RevisionFeedback = feedback
	t.AdditionalRequirements = additionalRequirements
	t.UpdatedAt = now
	return nil
}

// Reject returns the task to the marketplace, clearing the assignment and
// any partial result so the next assistant starts fresh.
func (t *Task) Reject(assistantID, reason string, now time.Time) error {
	if t.Status != StatusInProgress && t.Status != StatusRevisionRequested {
		return ErrInvalidTransition(t.Status, "reject")
	}
	if t.AssistantID != assistantID {
		return cerr.NewReasonError(cerr.PermissionDenied, "forbidden", "only the assigned assistant may reject this task", nil)
	}
	if reason == "" {
		return cerr.NewError(cerr.InvalidArgument, "reason must not be empty", nil)
	}
	t.Status = StatusPending
	t.AssistantID = ""
	t.ClaimedAt = nil
	t.CompletedAt = nil
	t.DetailedResult = ""
	t.CompletionSummary = ""
	t.CompletedBy = ""
	t.RevisionFeedback = ""
	t.AdditionalRequirements = ""
	t.RejectReason = reason
	t.UpdatedAt = now
	return nil
}

// AssignTo is the manager override path: it skips the marketplace
// eligibility filters but shares the same transition table.
func (t *Task) AssignTo(assistantID string, now time.Time) error {
	if t.Status != StatusPending && t.Status != StatusInProgress {
		return ErrInvalidTransition(t.Status, "manager_reassign")
	}
	t.AssistantID = assistantID
	t.Status = StatusInProgress
	t.ClaimedAt = &now
	t.UpdatedAt = now
	return nil
}

// Unassign clears the assignment and returns the task to the marketplace.
func (t *Task) Unassign(now time.Time) error {
	if t.Status != StatusPending && t.Status != StatusInProgress {
		return ErrInvalidTransition(t.Status, "manager_reassign")
	}
	t.AssistantID = ""
	t.ClaimedAt = nil
	t.Status = StatusPending
	t.UpdatedAt = now
	return nil
}

// Cancel is valid on pending tasks only, by the owning client or a manager.
func (t *Task) Cancel(cancelledBy string, now time.Time) error {
	if t.Status != StatusPending {
		return ErrInvalidTransition(t.Status, "cancel")
	}
	t.Status = StatusCancelled
	t.CancelledBy = cancelledBy
	t.UpdatedAt = now
	return nil
}
