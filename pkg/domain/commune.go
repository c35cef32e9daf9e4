package domain

import (
	"strings"

	dErrors "renoflow/pkg/domain-errors"
)

// CommuneCode is a 5-digit INSEE commune code. Overseas communes use a
// 3-digit département prefix ("97x"/"98x"); metropolitan communes use 2.
//
// Construct via ParseCommuneCode at trust boundaries; the Department method
// assumes the format invariant already holds.
type CommuneCode string

// ParseCommuneCode validates the exact-5-digit format. Anything else is a
// hard input error, raised before any coverage query runs.
func ParseCommuneCode(s string) (CommuneCode, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "commune code cannot be empty")
	}
	if len(s) != 5 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "commune code must be exactly 5 digits: "+s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "commune code must be exactly 5 digits: "+s)
		}
	}
	return CommuneCode(s), nil
}

// Department derives the département code: the first 3 digits for overseas
// codes (prefix "97" or "98"), the first 2 otherwise.
func (c CommuneCode) Department() string {
	s := string(c)
	if strings.HasPrefix(s, "97") || strings.HasPrefix(s, "98") {
		return s[:3]
	}
	return s[:2]
}

func (c CommuneCode) String() string { return string(c) }

// EPCICode is an intercommunal-area (EPCI) SIREN code. It is opaque to this
// system and may be empty when the citizen's intercommunality is unknown.
type EPCICode string

func (e EPCICode) IsZero() bool   { return e == "" }
func (e EPCICode) String() string { return string(e) }
