package amo

import (
	"time"

	id "renoflow/pkg/domain"
	pkgstrings "renoflow/pkg/platform/strings"
)

// Company is an assistance company (AMO) from the reference data set.
// Coverage is the union of explicit commune rows, explicit EPCI rows, and a
// free-text perimeter declaration; the resolution policies in
// internal/territory decide how each contributes.
type Company struct {
	ID      id.CompanyID
	Name    string
	Siret   string
	Phone   string
	Address string

	// Email may hold several addresses separated by semicolons, as imported
	// from the reference file.
	Email string

	// Perimeter is the free-text coverage declaration; a département code
	// appearing in it as a substring counts as département-level coverage.
	Perimeter string

	// CommuneCodes and EPCICodes are the explicit coverage tables.
	CommuneCodes []string
	EPCICodes    []string
}

// Emails returns the parsed recipient list: split on ";", trimmed, deduped.
func (c *Company) Emails() []string {
	return pkgstrings.SplitAddressList(c.Email)
}

// CoversCommune reports an explicit commune-coverage row match.
func (c *Company) CoversCommune(code id.CommuneCode) bool {
	for _, cc := range c.CommuneCodes {
		if cc == code.String() {
			return true
		}
	}
	return false
}

// CoversEPCI reports an explicit intercommunal-coverage row match. An empty
// EPCI code never matches: unknown intercommunality falls through to the
// commune and département checks.
func (c *Company) CoversEPCI(code id.EPCICode) bool {
	if code.IsZero() {
		return false
	}
	for _, ec := range c.EPCICodes {
		if ec == code.String() {
			return true
		}
	}
	return false
}

// ValidationRecord is the single validation request a journey may hold. A
// re-selection supersedes it in place (all decision and tracking fields
// reset), never appends a second row.
type ValidationRecord struct {
	ID        id.ValidationID
	UserID    id.UserID
	CompanyID id.CompanyID
	Status    id.ValidationStatus

	// Comment is the company's free-text justification, set on decision.
	Comment   string
	DecidedAt *time.Time

	// Personal data, present only between creation and decision. Every
	// successful approve/reject clears these.
	FirstName       string
	LastName        string
	ContactEmail    string
	ContactPhone    string
	DwellingAddress string

	// MessageID tracks the notification delivery when it succeeded.
	MessageID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurgePersonalData nulls the personal fields. Mandatory once a decision is
// recorded.
func (v *ValidationRecord) PurgePersonalData() {
	v.FirstName = ""
	v.LastName = ""
	v.ContactEmail = ""
	v.ContactPhone = ""
	v.DwellingAddress = ""
}

// Purged reports whether the personal fields are cleared.
func (v *ValidationRecord) Purged() bool {
	return v.FirstName == "" && v.LastName == "" && v.ContactEmail == "" &&
		v.ContactPhone == "" && v.DwellingAddress == ""
}

// Token is the single-use secure link a company decides through. At most one
// non-superseded token exists per validation record; a re-selection issues a
// fresh token and the old one becomes unreachable.
type Token struct {
	// Value is the opaque random identifier embedded in the link.
	Value string

	ValidationID id.ValidationID
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
}

// Usable reports whether the token can still carry a decision:
// consumedAt is null and now is before expiry.
func (t *Token) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// Expired reports whether the validity window has passed.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
