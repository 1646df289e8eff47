package core

import (
	"golang.org/x/sync/errgroup"
)

// centsPerDollar is the round-up unit: spare change is measured against the
// next whole dollar.
const centsPerDollar int64 = 100

// ProcessedTransaction pairs a transaction with its computed round-up.
type ProcessedTransaction struct {
	Transaction
	RoundUp Money
}

// RejectedTransaction reports a batch entry that failed validation, together
// with its position in the input sequence and the reason it was skipped.
type RejectedTransaction struct {
	Index       int
	Transaction Transaction
	Reason      error
}

// BatchResult is the outcome of processing a sequence of transactions.
// Processed preserves the input order of the accepted entries; Rejected
// preserves the input order of the skipped ones.
type BatchResult struct {
	ProcessedCount int
	TotalRoundUps  Money
	Processed      []ProcessedTransaction
	Rejected       []RejectedTransaction
}

// CalculateRoundUp returns the spare change between the amount and the next
// whole dollar. An exact whole-dollar amount still advances to the next
// dollar, so the result is never zero: it ranges from 0.01 (amount ends in
// .99) to 1.00 (whole-dollar amount).
//
// Arithmetic is in integer cents, so results are exact; there is no
// floating-point drift. The only failure mode is a non-positive amount.
func CalculateRoundUp(amount Money) (Money, error) {
	if err := amount.Validate(); err != nil {
		return Money{}, err
	}
	rem := amount.Cents % centsPerDollar
	return Money{Cents: centsPerDollar - rem}, nil
}

// ProcessRoundUps applies CalculateRoundUp to each transaction independently.
// Entries that fail validation are skipped and reported in Rejected; they
// never abort the batch.
//
// Round-ups are computed element-wise in parallel (each goroutine writes its
// own index slot), then the total is summed in input order from the raw cent
// values. Since cents are exact integers the reduction is deterministic
// regardless of scheduling.
func ProcessRoundUps(txs []Transaction) BatchResult {
	roundUps := make([]Money, len(txs))
	errs := make([]error, len(txs))

	var g errgroup.Group
	for i, tx := range txs {
		g.Go(func() error {
			if err := tx.Validate(); err != nil {
				errs[i] = err
				return nil
			}
			roundUps[i], errs[i] = CalculateRoundUp(tx.Amount)
			return nil
		})
	}
	// Workers only record per-item outcomes; the group never returns an error.
	_ = g.Wait()

	var result BatchResult
	var totalCents int64
	for i, tx := range txs {
		if errs[i] != nil {
			result.Rejected = append(result.Rejected, RejectedTransaction{
				Index:       i,
				Transaction: tx,
				Reason:      errs[i],
			})
			continue
		}
		result.Processed = append(result.Processed, ProcessedTransaction{
			Transaction: tx,
			RoundUp:     roundUps[i],
		})
		totalCents += roundUps[i].Cents
	}
	result.ProcessedCount = len(result.Processed)
	result.TotalRoundUps = Money{Cents: totalCents}
	return result
}
