package service

import (
	"context"

	"splat-tracker/internal/constants"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// AggregationService serves the per-session rollup views. An aggregation
// row is always recomputed from the match table on read.
type AggregationService struct {
	matches  *repository.MatchRepository
	tracker  *livequery.Tracker
	notifier *livequery.Notifier
	logger   zerolog.Logger
}

func NewAggregationService(
	matches *repository.MatchRepository,
	tracker *livequery.Tracker,
	notifier *livequery.Notifier,
	logger zerolog.Logger,
) *AggregationService {
	return &AggregationService{
		matches:  matches,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
	}
}

// GroupStats computes the rollup for one session group. Nil when the group
// has no visible matches.
func (s *AggregationService) GroupStats(ctx context.Context, accountID string, groupID int64) (*domain.GroupStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.matches.GroupStats(ctx, accountID, groupID)
}

// ListGroups returns the latest session rollups, newest group first, under
// the standard pagination contract.
func (s *AggregationService) ListGroups(ctx context.Context, accountID string, page domain.Page) ([]domain.GroupStats, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.matches.ListGroupStats(ctx, accountID, page)
}

// OpenLiveGroup keeps one group's rollup current as the match table
// mutates.
func (s *AggregationService) OpenLiveGroup(ctx context.Context, accountID string, groupID int64) *livequery.Subscription[*domain.GroupStats] {
	run := func(runCtx context.Context) (*domain.GroupStats, error) {
		return s.matches.GroupStats(runCtx, accountID, groupID)
	}
	return livequery.Open(ctx, s.logger, s.tracker, s.notifier, []string{"matches"}, run)
}
