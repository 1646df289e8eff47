package core

// CategoryAmount is one category's slice of a month overview.
type CategoryAmount struct {
	Category Category
	Spent    Money
	RoundUps Money
}

// MonthOverview aggregates a month of transactions and their round-ups.
type MonthOverview struct {
	Year       int
	Month      int
	TotalSpent Money
	RoundUps   Money
	Count      int
	ByCategory []CategoryAmount
}

// MonthlyTotal is the round-up total observed in one calendar month.
// Used to estimate a recurring monthly contribution.
type MonthlyTotal struct {
	Year     int
	Month    int
	RoundUps Money
}

// EstimateMonthlyContribution returns the mean of the observed per-month
// round-up totals, rounded half-up to cents. Zero months yield zero.
func EstimateMonthlyContribution(totals []MonthlyTotal) Money {
	if len(totals) == 0 {
		return Money{}
	}
	var sum int64
	for _, t := range totals {
		sum += t.RoundUps.Cents
	}
	n := int64(len(totals))
	// Half-up on integer division.
	cents := (sum + n/2) / n
	return Money{Cents: cents}
}
