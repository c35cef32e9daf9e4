// Package casefile tracks, per journey step, the file opened in the external
// case-management service, and bridges that service's statuses back onto the
// journey state machine.
package casefile

import (
	"time"

	id "renoflow/pkg/domain"
)

// CaseFile is the local record of one external file: where it lives and the
// last status observed for it.
type CaseFile struct {
	UserID id.UserID
	Step   id.Step

	FileID     string
	FileNumber string
	URL        string

	// LastStatus is the most recent external status observed, including the
	// local inaccessible sentinel when the lookup itself failed.
	LastStatus id.CaseStatus

	SubmittedAt *time.Time
	ProcessedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusMap translates external case statuses into step statuses. The
// mapping is injected so deployments can follow upstream vocabulary changes
// without a release.
type StatusMap map[id.CaseStatus]id.StepStatus

// DefaultStatusMap is the production mapping. Refusals and dismissals keep
// the step under review: an agent handles those outcomes with the citizen
// rather than the machine resetting anything.
func DefaultStatusMap() StatusMap {
	return StatusMap{
		id.CaseStatusDrafting:    id.StatusTodo,
		id.CaseStatusUnderReview: id.StatusUnderReview,
		id.CaseStatusApproved:    id.StatusApproved,
		id.CaseStatusRefused:     id.StatusUnderReview,
		id.CaseStatusDismissed:   id.StatusUnderReview,
	}
}
