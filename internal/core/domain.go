package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryGroceries     Category = "groceries"
	CategoryDining        Category = "dining"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryUtilities     Category = "utilities"
	CategoryOther         Category = "other"
)

const (
	Conservative RiskProfile = "conservative"
	Balanced     RiskProfile = "balanced"
	Aggressive   RiskProfile = "aggressive"
)

type (
	// Category is a closed set of spending labels. Free-form strings are
	// rejected at the ingestion boundary via ParseCategory.
	Category string

	// RiskProfile names a fixed annual rate-of-return tier.
	RiskProfile string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		Date        Date
		Description string
		Amount      Money
		Category    Category
	}
)

var (
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyDescription       = errors.New("empty description")
	ErrInvalidCategory        = errors.New("unrecognized category")
	ErrInvalidRiskProfile     = errors.New("unrecognized risk profile")
	ErrInvalidProjectionInput = errors.New("invalid projection input")
)

// profileRates maps each risk profile to its fixed annual rate of return.
// Adjusting or adding a tier is a data change, not a logic change.
var profileRates = map[RiskProfile]float64{
	Conservative: 0.04,
	Balanced:     0.08,
	Aggressive:   0.12,
}

// categories is the recognized label set, in display order.
var categories = []Category{
	CategoryGroceries,
	CategoryDining,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryUtilities,
	CategoryOther,
}

// Categories returns the recognized category labels in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory normalizes a label (case, surrounding whitespace) and rejects
// anything outside the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// ParseRiskProfile normalizes a profile name and validates it against the
// fixed tier set.
func ParseRiskProfile(s string) (RiskProfile, error) {
	p := RiskProfile(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profileRates[p]; !ok {
		return "", ErrInvalidRiskProfile
	}
	return p, nil
}

// RiskProfiles returns the fixed tiers in ascending order of rate.
func RiskProfiles() []RiskProfile {
	return []RiskProfile{Conservative, Balanced, Aggressive}
}

// AnnualRate returns the fixed annual rate of return for the profile
// (e.g. 0.08 for 8%). Unknown profiles return 0.
func (p RiskProfile) AnnualRate() float64 {
	return profileRates[p]
}

func (p RiskProfile) Validate() error {
	if _, ok := profileRates[p]; !ok {
		return ErrInvalidRiskProfile
	}
	return nil
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if _, err := ParseCategory(string(t.Category)); err != nil {
		return err
	}
	return nil
}
