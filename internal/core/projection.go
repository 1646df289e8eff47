package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Checkpoint horizons reported by ProjectCheckpoints, in years.
var checkpointYears = [4]int{1, 3, 5, 10}

// ProjectionInput carries the explicit inputs for a single projection run.
// It is decoupled from any stored profile so callers can run what-if
// comparisons without touching persisted state.
type ProjectionInput struct {
	CurrentBalance      Money
	MonthlyContribution Money
	AnnualRate          float64
	HorizonMonths       int
}

// ProjectionResult holds the future value at the standard checkpoints,
// plus the profile metadata the run used.
type ProjectionResult struct {
	Profile    RiskProfile
	AnnualRate float64
	OneYear    Money
	ThreeYears Money
	FiveYears  Money
	TenYears   Money
}

// maxAnnualRate bounds the accepted rate of return; anything above 100%/yr
// is treated as caller error.
const maxAnnualRate = 1.0

func (in ProjectionInput) Validate() error {
	if in.CurrentBalance.Cents < 0 {
		return fmt.Errorf("%w: negative balance", ErrInvalidProjectionInput)
	}
	if in.MonthlyContribution.Cents < 0 {
		return fmt.Errorf("%w: negative contribution", ErrInvalidProjectionInput)
	}
	if in.AnnualRate < 0 || in.AnnualRate > maxAnnualRate || math.IsNaN(in.AnnualRate) {
		return fmt.Errorf("%w: annual rate %v out of range", ErrInvalidProjectionInput, in.AnnualRate)
	}
	if in.HorizonMonths <= 0 {
		return fmt.Errorf("%w: horizon must be positive", ErrInvalidProjectionInput)
	}
	return nil
}

// HorizonMonthsFromYears converts a possibly fractional year horizon to
// whole months, rounding down.
func HorizonMonthsFromYears(years float64) int {
	return int(math.Floor(years * 12))
}

// Project computes the compounded future value of the balance under monthly
// compounding with end-of-period contributions (ordinary annuity): each month
// interest is applied to the prior balance, then the contribution is added.
//
// Per-month accumulation runs on decimals so no floating-point error compounds
// across the iterations; only the final value is rounded to cents.
func Project(in ProjectionInput) (Money, error) {
	if err := in.Validate(); err != nil {
		return Money{}, err
	}
	bal := runProjection(in.CurrentBalance, in.MonthlyContribution, in.AnnualRate, in.HorizonMonths, nil)
	return toCents(bal), nil
}

// ProjectCheckpoints computes the future value at the 1/3/5/10-year
// checkpoints in a single pass over the 120 months.
func ProjectCheckpoints(balance, contribution Money, profile RiskProfile) (ProjectionResult, error) {
	if err := profile.Validate(); err != nil {
		return ProjectionResult{}, err
	}
	rate := profile.AnnualRate()
	in := ProjectionInput{
		CurrentBalance:      balance,
		MonthlyContribution: contribution,
		AnnualRate:          rate,
		HorizonMonths:       checkpointYears[len(checkpointYears)-1] * 12,
	}
	if err := in.Validate(); err != nil {
		return ProjectionResult{}, err
	}

	captured := make(map[int]Money, len(checkpointYears))
	capture := func(month int, bal decimal.Decimal) {
		for _, y := range checkpointYears {
			if month == y*12 {
				captured[y] = toCents(bal)
			}
		}
	}
	runProjection(balance, contribution, rate, in.HorizonMonths, capture)

	return ProjectionResult{
		Profile:    profile,
		AnnualRate: rate,
		OneYear:    captured[1],
		ThreeYears: captured[3],
		FiveYears:  captured[5],
		TenYears:   captured[10],
	}, nil
}

// CompareProfiles runs the checkpoint projection under all three fixed
// profiles for side-by-side display. The runs are independent replications
// of the single-profile algorithm.
func CompareProfiles(balance, contribution Money) ([]ProjectionResult, error) {
	profiles := RiskProfiles()
	results := make([]ProjectionResult, 0, len(profiles))
	for _, p := range profiles {
		r, err := ProjectCheckpoints(balance, contribution, p)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// runProjection iterates the monthly recurrence, invoking capture (when
// non-nil) after each month. Inputs are assumed validated.
func runProjection(balance, contribution Money, annualRate float64, months int, capture func(int, decimal.Decimal)) decimal.Decimal {
	monthlyRate := decimal.NewFromFloat(annualRate).Div(decimal.NewFromInt(12))
	growth := decimal.New(1, 0).Add(monthlyRate)
	contrib := decimal.New(contribution.Cents, -2)

	bal := decimal.New(balance.Cents, -2)
	for m := 1; m <= months; m++ {
		bal = bal.Mul(growth).Add(contrib)
		if capture != nil {
			capture(m, bal)
		}
	}
	return bal
}

// toCents rounds a decimal dollar value half-up to two places and converts
// it to Money.
func toCents(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}
