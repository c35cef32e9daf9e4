package domain

import dErrors "renoflow/pkg/domain-errors"

// ValidationStatus is the state of an AMO validation record. Pending is the
// only non-terminal state; a citizen re-selecting a company supersedes the
// record back to pending rather than appending a new row.
type ValidationStatus string

const (
	ValidationPending          ValidationStatus = "pending"
	ValidationEligible         ValidationStatus = "eligible"
	ValidationNotEligible      ValidationStatus = "not_eligible"
	ValidationAssistanceRefuse ValidationStatus = "assistance_refused"
)

var validValidationStatuses = map[ValidationStatus]bool{
	ValidationPending:          true,
	ValidationEligible:         true,
	ValidationNotEligible:      true,
	ValidationAssistanceRefuse: true,
}

// ParseValidationStatus constructs a ValidationStatus from external input.
func ParseValidationStatus(s string) (ValidationStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "validation status cannot be empty")
	}
	vs := ValidationStatus(s)
	if !vs.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid validation status: "+s)
	}
	return vs, nil
}

func (s ValidationStatus) IsValid() bool  { return validValidationStatuses[s] }
func (s ValidationStatus) String() string { return string(s) }

// IsDecided reports whether a company decision has been recorded.
func (s ValidationStatus) IsDecided() bool {
	return s == ValidationEligible || s == ValidationNotEligible || s == ValidationAssistanceRefuse
}
