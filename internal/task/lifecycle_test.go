package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/cerr"
)

func pendingTask() *Task {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &Task{
		ID:        "t1",
		ClientID:  "client1",
		Title:     "book a restaurant",
		Type:      TypePersonal,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestClaim(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tk := pendingTask()
	require.NoError(t, tk.Claim("worker", now))
	assert.Equal(t, StatusInProgress, tk.Status)
	assert.Equal(t, "worker", tk.AssistantID)
	require.NotNil(t, tk.ClaimedAt)
	assert.Equal(t, now, *tk.ClaimedAt)

	err := tk.Claim("other", now)
	require.Error(t, err)
	assert.True(t, cerr.IsReason(err, ReasonInvalidTransition))
}

func TestCompleteGuards(t *testing.T) {
	now := time.Now()
	tk := pendingTask()

	err := tk.Complete("worker", "result", "", now)
	assert.True(t, cerr.IsReason(err, ReasonInvalidTransition))

	require.NoError(t, tk.Claim("worker", now))

	err = tk.Complete("intruder", "result", "", now)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	err = tk.Complete("worker", "", "", now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	require.NoError(t, tk.Complete("worker", "booked the table", "done", now))
	assert.Equal(t, StatusCompleted, tk.Status)
	assert.Equal(t, "worker", tk.CompletedBy)
	require.NotNil(t, tk.CompletedAt)
}

func TestApproveClearsAssignmentKeepsCompletedBy(t *testing.T) {
	now := time.Now()
	tk := pendingTask()
	require.NoError(t, tk.Claim("worker", now))
	require.NoError(t, tk.Complete("worker", "result", "", now))

	err := tk.Approve("stranger", 5, "nice", now)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	err = tk.Approve("client1", 0, "nice", now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	err = tk.Approve("client1", 6, "nice", now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	err = tk.Approve("client1", 5, "", now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	require.NoError(t, tk.Approve("client1", 5, "nice", now))
	assert.Equal(t, StatusApproved, tk.Status)
	assert.Empty(t, tk.AssistantID)
	assert.Equal(t, "worker", tk.CompletedBy)
	assert.Equal(t, 5, tk.ClientRating)
	require.NotNil(t, tk.ApprovedAt)

	// Terminal: nothing moves an approved task.
	assert.Error(t, tk.Claim("worker", now))
	assert.Error(t, tk.Complete("worker", "again", "", now))
	assert.Error(t, tk.Cancel("client1", now))
}

func TestRevisionLoop(t *testing.T) {
	now := time.Now()
	tk := pendingTask()
	require.NoError(t, tk.Claim("worker", now))
	require.NoError(t, tk.Complete("worker", "first try", "", now))

	err := tk.RequestRevision("client1", "", "", now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	require.NoError(t, tk.RequestRevision("client1", "change the time", "to 8pm", now))
	assert.Equal(t, StatusRevisionRequested, tk.Status)
	assert.Equal(t, "worker", tk.AssistantID)
	assert.NotNil(t, tk.ClaimedAt)

	// Around the loop again.
	require.NoError(t, tk.Complete("worker", "second try", "", now))
	require.NoError(t, tk.RequestRevision("client1", "still wrong", "", now))
	require.NoError(t, tk.Complete("worker", "third try", "", now))
	assert.Equal(t, StatusCompleted, tk.Status)
}

func TestRejectClearsResultAndAssignment(t *testing.T) {
	now := time.Now()
	tk := pendingTask()
	require.NoError(t, tk.Claim("worker", now))
	require.NoError(t, tk.Complete("worker", "partial", "half", now))
	require.NoError(t, tk.RequestRevision("client1", "redo", "", now))

	err := tk.Reject("worker", "", now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	err = tk.Reject("intruder", "reason", now)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	require.NoError(t, tk.Reject("worker", "overloaded", now))
	assert.Equal(t, StatusPending, tk.Status)
	assert.Empty(t, tk.AssistantID)
	assert.Nil(t, tk.ClaimedAt)
	assert.Nil(t, tk.CompletedAt)
	assert.Empty(t, tk.DetailedResult)
	assert.Empty(t, tk.CompletedBy)
	assert.Empty(t, tk.RevisionFeedback)
	assert.Equal(t, "overloaded", tk.RejectReason)

	// A fresh assistant can pick it up again.
	require.NoError(t, tk.Claim("other", now))
}

func TestRejectFromCompletedInvalid(t *testing.T) {
	now := time.Now()
	tk := pendingTask()
	require.NoError(t, tk.Claim("worker", now))
	require.NoError(t, tk.Complete("worker", "result", "", now))

	err := tk.Reject("worker", "too late", now)
	assert.True(t, cerr.IsReason(err, ReasonInvalidTransition))
}

func TestAssignToAndUnassign(t *testing.T) {
	now := time.Now()

	tk := pendingTask()
	require.NoError(t, tk.AssignTo("worker", now))
	assert.Equal(t, StatusInProgress, tk.Status)

	// Reassign while in progress is the manager override.
	require.NoError(t, tk.AssignTo("other", now))
	assert.Equal(t, "other", tk.AssistantID)

	require.NoError(t, tk.Unassign(now))
	assert.Equal(t, StatusPending, tk.Status)
	assert.Empty(t, tk.AssistantID)
	assert.Nil(t, tk.ClaimedAt)

	require.NoError(t, tk.Claim("worker", now))
	require.NoError(t, tk.Complete("worker", "result", "", now))
	err := tk.AssignTo("other", now)
	assert.True(t, cerr.IsReason(err, ReasonInvalidTransition))
}

func TestCancelPendingOnly(t *testing.T) {
	now := time.Now()

	tk := pendingTask()
	require.NoError(t, tk.Cancel("client1", now))
	assert.Equal(t, StatusCancelled, tk.Status)
	assert.Equal(t, "client1", tk.CancelledBy)

	tk = pendingTask()
	require.NoError(t, tk.Claim("worker", now))
	err := tk.Cancel("client1", now)
	assert.True(t, cerr.IsReason(err, ReasonInvalidTransition))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusCompleted.Terminal())

	assert.True(t, StatusInProgress.Assigned())
	assert.True(t, StatusCompleted.Assigned())
	assert.True(t, StatusRevisionRequested.Assigned())
	assert.False(t, StatusPending.Assigned())
	assert.False(t, StatusApproved.Assigned())
}
