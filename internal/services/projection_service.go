package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"growahead/internal/core"
)

// ProjectionStore is the storage surface the projection service needs.
type ProjectionStore interface {
	RoundUpBalance(ctx context.Context) (core.Money, int, error)
	MonthlyRoundUpTotals(ctx context.Context) ([]core.MonthlyTotal, error)
	GetRiskProfile(ctx context.Context) (core.RiskProfile, error)
	GetMonthlyContributionOverride(ctx context.Context) (core.Money, bool, error)
}

// ResultCache stores serialized projection results. Implemented by the Redis
// cache; nil disables caching.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
}

// ProjectionService assembles projection inputs from storage and runs the
// engine, with optional shared caching of checkpoint results.
type ProjectionService struct {
	store ProjectionStore
	cache ResultCache
}

func NewProjectionService(store ProjectionStore, cache ResultCache) *ProjectionService {
	return &ProjectionService{
		store: store,
		cache: cache,
	}
}

// ProjectionSnapshot couples a projection result with the inputs that
// produced it.
type ProjectionSnapshot struct {
	Balance      core.Money              `json:"balance"`
	Contribution core.Money              `json:"contribution"`
	Results      []core.ProjectionResult `json:"results"`
}

// Inputs loads the current balance, estimated monthly contribution and the
// stored risk profile.
func (s *ProjectionService) Inputs(ctx context.Context) (core.Money, core.Money, core.RiskProfile, error) {
	balance, _, err := s.store.RoundUpBalance(ctx)
	if err != nil {
		return core.Money{}, core.Money{}, "", fmt.Errorf("load balance: %w", err)
	}

	contribution, ok, err := s.store.GetMonthlyContributionOverride(ctx)
	if err != nil {
		return core.Money{}, core.Money{}, "", fmt.Errorf("load contribution override: %w", err)
	}
	if !ok {
		totals, err := s.store.MonthlyRoundUpTotals(ctx)
		if err != nil {
			return core.Money{}, core.Money{}, "", fmt.Errorf("load monthly totals: %w", err)
		}
		contribution = core.EstimateMonthlyContribution(totals)
	}

	profile, err := s.store.GetRiskProfile(ctx)
	if err != nil {
		return core.Money{}, core.Money{}, "", fmt.Errorf("load risk profile: %w", err)
	}

	return balance, contribution, profile, nil
}

// Checkpoints runs the 1/3/5/10-year projection for the stored profile.
func (s *ProjectionService) Checkpoints(ctx context.Context) (ProjectionSnapshot, error) {
	balance, contribution, profile, err := s.Inputs(ctx)
	if err != nil {
		return ProjectionSnapshot{}, err
	}

	key := fmt.Sprintf("projections:%s:%d:%d", profile, balance.Cents, contribution.Cents)
	if snap, ok := s.cached(ctx, key); ok {
		return snap, nil
	}

	result, err := core.ProjectCheckpoints(balance, contribution, profile)
	if err != nil {
		return ProjectionSnapshot{}, err
	}

	snap := ProjectionSnapshot{
		Balance:      balance,
		Contribution: contribution,
		Results:      []core.ProjectionResult{result},
	}
	s.cacheSet(ctx, key, snap)
	return snap, nil
}

// Compare runs the checkpoints under all three risk profiles.
func (s *ProjectionService) Compare(ctx context.Context) (ProjectionSnapshot, error) {
	balance, contribution, _, err := s.Inputs(ctx)
	if err != nil {
		return ProjectionSnapshot{}, err
	}

	key := fmt.Sprintf("projections:compare:%d:%d", balance.Cents, contribution.Cents)
	if snap, ok := s.cached(ctx, key); ok {
		return snap, nil
	}

	results, err := core.CompareProfiles(balance, contribution)
	if err != nil {
		return ProjectionSnapshot{}, err
	}

	snap := ProjectionSnapshot{
		Balance:      balance,
		Contribution: contribution,
		Results:      results,
	}
	s.cacheSet(ctx, key, snap)
	return snap, nil
}

// Custom projects explicit inputs over an arbitrary horizon. Results are not
// cached: inputs are caller-supplied and rarely repeat.
func (s *ProjectionService) Custom(ctx context.Context, in core.ProjectionInput) (core.Money, error) {
	return core.Project(in)
}

func (s *ProjectionService) cached(ctx context.Context, key string) (ProjectionSnapshot, bool) {
	if s.cache == nil {
		return ProjectionSnapshot{}, false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return ProjectionSnapshot{}, false
	}
	var snap ProjectionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.WarnContext(ctx, "Discarding unreadable cached projection", "key", key, "error", err)
		return ProjectionSnapshot{}, false
	}
	return snap, true
}

func (s *ProjectionService) cacheSet(ctx context.Context, key string, snap ProjectionSnapshot) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		slog.WarnContext(ctx, "Failed to cache projection", "key", key, "error", err)
	}
}
