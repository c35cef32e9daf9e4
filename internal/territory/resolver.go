// Package territory answers "which assistance companies may serve this
// location". Two related but independently specified policies live here:
//
//   - the discovery list, shown to the citizen, unions explicit commune
//     coverage with free-text département coverage and deliberately ignores
//     EPCI coverage;
//   - the authorization check, gating the citizen's actual selection, also
//     consults explicit EPCI coverage.
//
// The asymmetry is observed behavior of the program, kept on purpose: an
// EPCI-only company can pass authorization without ever appearing in
// discovery.
package territory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"renoflow/internal/amo"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/sentinel"
)

// Index is the read-only coverage lookup the engine resolves against.
// amo.CompanyStore satisfies it.
type Index interface {
	Get(ctx context.Context, companyID id.CompanyID) (*amo.Company, error)
	FindByCommune(ctx context.Context, commune id.CommuneCode) ([]*amo.Company, error)
	FindByDepartment(ctx context.Context, department string) ([]*amo.Company, error)
}

// Engine applies the priority/fallback policy over the index.
type Engine struct {
	index Index
}

func NewEngine(index Index) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("territorial index is required")
	}
	return &Engine{index: index}, nil
}

// ListCompanies builds the citizen-facing discovery list for a commune:
// explicit commune matches unioned with département substring matches,
// deduplicated by company identity. The commune code must already be parsed,
// so the format error surfaces before any query executes.
func (e *Engine) ListCompanies(ctx context.Context, commune id.CommuneCode) ([]*amo.Company, error) {
	byCommune, err := e.index.FindByCommune(ctx, commune)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "commune coverage lookup", err)
	}
	byDepartment, err := e.index.FindByDepartment(ctx, commune.Department())
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "department coverage lookup", err)
	}

	seen := make(map[id.CompanyID]struct{}, len(byCommune)+len(byDepartment))
	result := make([]*amo.Company, 0, len(byCommune)+len(byDepartment))
	for _, company := range byCommune {
		if _, ok := seen[company.ID]; ok {
			continue
		}
		seen[company.ID] = struct{}{}
		result = append(result, company)
	}
	for _, company := range byDepartment {
		if _, ok := seen[company.ID]; ok {
			continue
		}
		seen[company.ID] = struct{}{}
		result = append(result, company)
	}
	return result, nil
}

// Authorize is the write-path gate for a citizen selecting one specific
// company: true iff the company explicitly covers the citizen's EPCI (when
// known), or explicitly covers the commune, or declares the département in
// its perimeter text. Monotonic in coverage: adding a row can only turn a
// false result true.
func (e *Engine) Authorize(ctx context.Context, companyID id.CompanyID, commune id.CommuneCode, epci id.EPCICode) (bool, error) {
	company, err := e.index.Get(ctx, companyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "unknown assistance company")
		}
		return false, dErrors.Wrap(dErrors.CodeInternal, "company lookup", err)
	}

	if company.CoversEPCI(epci) {
		return true, nil
	}
	if company.CoversCommune(commune) {
		return true, nil
	}
	return coversDepartment(company, commune.Department()), nil
}

// coversDepartment mirrors the reference-data match: a plain substring check
// over the free-text perimeter declaration.
func coversDepartment(company *amo.Company, department string) bool {
	return department != "" && strings.Contains(company.Perimeter, department)
}
