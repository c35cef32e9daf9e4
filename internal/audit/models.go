package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Action    Action    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Action labels the auditable operations of the journey and validation
// workflows.
type Action string

const (
	ActionCompanySelected  Action = "company_selected"
	ActionDecisionRecorded Action = "decision_recorded"
	ActionJourneyAdvanced  Action = "journey_advanced"
	ActionJourneyCompleted Action = "journey_completed"
	ActionStatusSynced     Action = "status_synced"
)
