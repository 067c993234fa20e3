package assistant

import (
	"time"

	"github.com/taskhive/taskhive/internal/task"
)

// MaxActiveTasks is the hard ceiling on concurrently held tasks.
const MaxActiveTasks = 5

type Specialization string

const (
	SpecializationPersonalOnly Specialization = "personal_only"
	SpecializationBusinessOnly Specialization = "business_only"
	SpecializationFullAccess   Specialization = "full_access"
)

func (s Specialization) Valid() bool {
	switch s {
	case SpecializationPersonalOnly, SpecializationBusinessOnly, SpecializationFullAccess:
		return true
	}
	return false
}

// Accepts reports whether the specialization covers the task type.
func (s Specialization) Accepts(t task.Type) bool {
	switch s {
	case SpecializationFullAccess:
		return true
	case SpecializationPersonalOnly:
		return t == task.TypePersonal
	case SpecializationBusinessOnly:
		return t == task.TypeBusiness
	}
	return false
}

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type Assistant struct {
	ID             string         `yaml:"id" json:"id"`
	Name           string         `yaml:"name" json:"name"`
	Specialization Specialization `yaml:"specialization" json:"specialization"`
	Status         Status         `yaml:"status" json:"status"`

	// ActiveTasks counts tasks this assistant currently holds (assigned and
	// non-terminal). Maintained by the engine in the same unit of work as
	// the status change, rebuilt from the task store at startup.
	ActiveTasks int `yaml:"active_tasks" json:"active_tasks"`

	TotalTasksCompleted int     `yaml:"total_tasks_completed" json:"total_tasks_completed"`
	RatingsCount        int     `yaml:"ratings_count" json:"ratings_count"`
	RatingsTotal        int     `yaml:"ratings_total" json:"ratings_total"`
	AverageRating       float64 `yaml:"average_rating" json:"average_rating"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

func (a *Assistant) AtCapacity() bool {
	return a.ActiveTasks >= MaxActiveTasks
}

// RecordRating folds one approved-task rating into the running mean.
func (a *Assistant) RecordRating(rating int) {
	a.RatingsCount++
	a.RatingsTotal += rating
	a.AverageRating = float64(a.RatingsTotal) / float64(a.RatingsCount)
}

// ResetAggregates zeroes everything Rebuild recomputes from the task store.
func (a *Assistant) ResetAggregates() {
	a.ActiveTasks = 0
	a.TotalTasksCompleted = 0
	a.RatingsCount = 0
	a.RatingsTotal = 0
	a.AverageRating = 0
}
