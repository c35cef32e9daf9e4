package journey

import id "renoflow/pkg/domain"

// Config is the injected step-ordering policy. The order is a fixed total
// order; "next step" is the successor, or none at the end.
type Config struct {
	Steps       []id.Step
	InitialStep id.Step
}

// DefaultConfig is the production step order.
func DefaultConfig() Config {
	return Config{
		Steps: []id.Step{
			id.StepCompanyChoice,
			id.StepEligibility,
			id.StepDiagnosis,
			id.StepQuotation,
			id.StepInvoicing,
		},
		InitialStep: id.StepCompanyChoice,
	}
}

// Next returns the successor of step, or false when step is last (or not in
// the configured order at all).
func (c Config) Next(step id.Step) (id.Step, bool) {
	for i, s := range c.Steps {
		if s == step && i+1 < len(c.Steps) {
			return c.Steps[i+1], true
		}
	}
	return "", false
}

// Contains reports whether step is part of the configured order.
func (c Config) Contains(step id.Step) bool {
	for _, s := range c.Steps {
		if s == step {
			return true
		}
	}
	return false
}
