package domain

import dErrors "renoflow/pkg/domain-errors"

// CaseStatus is the status reported by the external case-management service
// for a step's file. CaseStatusInaccessible is a local sentinel recorded when
// the external lookup itself fails; the feed never reports it.
type CaseStatus string

const (
	CaseStatusDrafting     CaseStatus = "drafting"
	CaseStatusUnderReview  CaseStatus = "under_review"
	CaseStatusApproved     CaseStatus = "approved"
	CaseStatusRefused      CaseStatus = "refused"
	CaseStatusDismissed    CaseStatus = "dismissed"
	CaseStatusInaccessible CaseStatus = "inaccessible"
)

var validCaseStatuses = map[CaseStatus]bool{
	CaseStatusDrafting:     true,
	CaseStatusUnderReview:  true,
	CaseStatusApproved:     true,
	CaseStatusRefused:      true,
	CaseStatusDismissed:    true,
	CaseStatusInaccessible: true,
}

// ParseCaseStatus constructs a CaseStatus from external input.
func ParseCaseStatus(s string) (CaseStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "case status cannot be empty")
	}
	cs := CaseStatus(s)
	if !cs.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid case status: "+s)
	}
	return cs, nil
}

func (s CaseStatus) IsValid() bool  { return validCaseStatuses[s] }
func (s CaseStatus) String() string { return string(s) }
