package task

import "time"

type Type string

const (
	TypePersonal Type = "personal"
	TypeBusiness Type = "business"
)

func (t Type) Valid() bool {
	return t == TypePersonal || t == TypeBusiness
}

type Status string

const (
	StatusPending           Status = "pending"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusApproved          Status = "approved"
	StatusRevisionRequested Status = "revision_requested"
	StatusRejected          Status = "rejected"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Assigned reports whether the status implies a non-null assistant.
// Invariant: assistant_id != "" iff Assigned().
func (s Status) Assigned() bool {
	return s == StatusInProgress || s == StatusCompleted || s == StatusRevisionRequested
}

type Task struct {
	ID          string `yaml:"id" json:"id"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	AssistantID string `yaml:"assistant_id,omitempty" json:"assistant_id,omitempty"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Type        Type   `yaml:"task_type" json:"task_type"`
	Status      Status `yaml:"status" json:"status"`

	Deadline    *time.Time `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	ClaimedAt   *time.Time `yaml:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	ApprovedAt  *time.Time `yaml:"approved_at,omitempty" json:"approved_at,omitempty"`
	UpdatedAt   time.Time  `yaml:"updated_at" json:"updated_at"`

	DetailedResult    string `yaml:"detailed_result,omitempty" json:"detailed_result,omitempty"`
	CompletionSummary string `yaml:"completion_summary,omitempty" json:"completion_summary,omitempty"`
	// CompletedBy survives approval, which clears AssistantID; rating
	// aggregates are rebuilt from it.
	CompletedBy string `yaml:"completed_by,omitempty" json:"completed_by,omitempty"`

	ClientRating   int    `yaml:"client_rating,omitempty" json:"client_rating,omitempty"`
	ClientFeedback string `yaml:"client_feedback,omitempty" json:"client_feedback,omitempty"`

	RevisionFeedback       string `yaml:"revision_feedback,omitempty" json:"revision_feedback,omitempty"`
	AdditionalRequirements string `yaml:"additional_requirements,omitempty" json:"additional_requirements,omitempty"`

	RejectReason string `yaml:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	CancelledBy  string `yaml:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`

	// Version counts committed writes; the repository refuses an update
	// whose version does not match the stored record.
	Version int `yaml:"version" json:"version"`
}
