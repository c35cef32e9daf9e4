package amo

import (
	"context"

	id "renoflow/pkg/domain"
)

// SeedCompanies loads a small reference set of assistance companies for dev
// instances and tests that need realistic coverage shapes: one commune-level,
// one département-level and one EPCI-only company.
func SeedCompanies(ctx context.Context, store CompanyStore) ([]*Company, error) {
	companies := []*Company{
		{
			ID:           id.NewCompanyID(),
			Name:         "Habitat Conseil Paris",
			Siret:        "13002526500013",
			Phone:        "0140000000",
			Address:      "4 avenue de l'Opéra, 75001 Paris",
			Email:        "contact@habitat-conseil.example",
			Perimeter:    "Paris (75)",
			CommuneCodes: []string{"75001", "75002"},
		},
		{
			ID:        id.NewCompanyID(),
			Name:      "Renov Accompagnement Indre",
			Siret:     "13002526500021",
			Phone:     "0254000000",
			Address:   "2 place de la République, 36000 Châteauroux",
			Email:     "amo@renov-indre.example;direction@renov-indre.example",
			Perimeter: "Indre (36)",
		},
		{
			ID:        id.NewCompanyID(),
			Name:      "AMO Châteauroux Métropole",
			Siret:     "13002526500039",
			Phone:     "0254111111",
			Address:   "10 rue de la Gare, 36000 Châteauroux",
			Email:     "contact@amo-chateauroux.example",
			Perimeter: "CA Châteauroux Métropole",
			EPCICodes: []string{"200068872"},
		},
	}
	for _, company := range companies {
		if err := store.Save(ctx, company); err != nil {
			return nil, err
		}
	}
	return companies, nil
}
