package journey

import (
	"time"

	id "renoflow/pkg/domain"
)

// Journey tracks one citizen's progression through the subsidy steps. It is
// created lazily on first access, mutated by every transition, and never
// deleted (retained for audit).
type Journey struct {
	UserID id.UserID
	Step   id.Step
	Status id.StepStatus

	// CompletedAt is set exactly once, when the final step is approved and
	// advancement is invoked.
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Completed reports whether the journey reached its terminal state.
func (j *Journey) Completed() bool { return j.CompletedAt != nil }

// CanCreateFile reports whether a case file may be filed for the current
// step. Allowed only from todo.
func (j *Journey) CanCreateFile() bool { return j.Status == id.StatusTodo }

// CanValidate reports whether the current step may be validated.
// Allowed only from under-review.
func (j *Journey) CanValidate() bool { return j.Status == id.StatusUnderReview }

// CanAdvance reports whether the journey may move to the next step.
// Allowed only from approved.
func (j *Journey) CanAdvance() bool { return j.Status == id.StatusApproved }

// NextActions is the guard summary exposed to callers rendering the
// citizen's journey page.
type NextActions struct {
	CanCreateFile bool `json:"can_create_file"`
	CanValidate   bool `json:"can_validate"`
	CanAdvance    bool `json:"can_advance"`
}

// Actions derives the eligible next actions from the guards.
func (j *Journey) Actions() NextActions {
	return NextActions{
		CanCreateFile: j.CanCreateFile(),
		CanValidate:   j.CanValidate(),
		CanAdvance:    j.CanAdvance(),
	}
}
