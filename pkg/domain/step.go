package domain

import dErrors "renoflow/pkg/domain-errors"

// Step is one administrative stage of the renovation journey. The ordering of
// steps is policy and lives in the journey configuration, not here.
type Step string

const (
	StepCompanyChoice Step = "company_choice"
	StepEligibility   Step = "eligibility"
	StepDiagnosis     Step = "diagnosis"
	StepQuotation     Step = "quotation"
	StepInvoicing     Step = "invoicing"
)

// validSteps is the single source of truth for supported steps.
var validSteps = map[Step]bool{
	StepCompanyChoice: true,
	StepEligibility:   true,
	StepDiagnosis:     true,
	StepQuotation:     true,
	StepInvoicing:     true,
}

// ParseStep constructs a Step from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseStep(s string) (Step, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "step cannot be empty")
	}
	step := Step(s)
	if !step.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid step: "+s)
	}
	return step, nil
}

func (s Step) IsValid() bool  { return validSteps[s] }
func (s Step) String() string { return string(s) }

// StepStatus is the progress of the journey's current step.
type StepStatus string

const (
	StatusTodo        StepStatus = "todo"
	StatusUnderReview StepStatus = "under_review"
	StatusApproved    StepStatus = "approved"
)

var validStepStatuses = map[StepStatus]bool{
	StatusTodo:        true,
	StatusUnderReview: true,
	StatusApproved:    true,
}

// ParseStepStatus constructs a StepStatus from external input.
func ParseStepStatus(s string) (StepStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "step status cannot be empty")
	}
	st := StepStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid step status: "+s)
	}
	return st, nil
}

func (s StepStatus) IsValid() bool  { return validStepStatuses[s] }
func (s StepStatus) String() string { return string(s) }
