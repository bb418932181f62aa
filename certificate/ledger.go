package certificate

import (
	"context"
	"errors"
	"fmt"
)

// ErrAssociateNotFound is returned by a Ledger for unknown national IDs.
var ErrAssociateNotFound = errors.New("associate not found")

// Associate holds the figures printed on certificates. Amounts are in
// Colombian pesos.
type Associate struct {
	Name                  string
	Cedula                string
	Status                string
	Since                 string
	ContributionsUpToDate bool
	ContributionBalance   float64
	LaborIncome           float64
	PensionContributions  float64
	HealthContributions   float64
	CoopContributions     float64
	WithholdingTax        float64
	OutstandingDebt       float64
}

// NetCertified is the net value reported on the tax certificate.
func (a Associate) NetCertified() float64 {
	return a.LaborIncome - a.PensionContributions - a.HealthContributions - a.CoopContributions - a.WithholdingTax
}

// Ledger looks up an associate by national ID.
type Ledger interface {
	Associate(ctx context.Context, cedula string) (Associate, error)
}

// StaticLedger is an in-process Ledger keyed by cedula.
type StaticLedger map[string]Associate

// Associate implements Ledger.
func (l StaticLedger) Associate(ctx context.Context, cedula string) (Associate, error) {
	if err := ctx.Err(); err != nil {
		return Associate{}, err
	}

	a, ok := l[cedula]
	if !ok {
		return Associate{}, fmt.Errorf("%w: %s", ErrAssociateNotFound, cedula)
	}

	return a, nil
}

// SampleLedger returns the demo associates used by the CLI and tests.
func SampleLedger() StaticLedger {
	return StaticLedger{
		"12345678": {
			Name:                  "Juan Pérez García",
			Cedula:                "12345678",
			Status:                "activo",
			Since:                 "2020-03-15",
			ContributionsUpToDate: true,
			ContributionBalance:   15_750_000,
			LaborIncome:           48_000_000,
			PensionContributions:  1_920_000,
			HealthContributions:   1_920_000,
			CoopContributions:     2_400_000,
			WithholdingTax:        650_000,
		},
		"87654321": {
			Name:                  "María Rodríguez López",
			Cedula:                "87654321",
			Status:                "activo",
			Since:                 "2019-06-20",
			ContributionsUpToDate: true,
			ContributionBalance:   22_500_000,
			LaborIncome:           62_400_000,
			PensionContributions:  2_496_000,
			HealthContributions:   2_496_000,
			CoopContributions:     3_120_000,
			WithholdingTax:        1_180_000,
			OutstandingDebt:       4_300_000,
		},
	}
}
