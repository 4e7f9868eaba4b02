package service

import (
	"context"
	"errors"

	"splat-tracker/internal/constants"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/query"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HistoryRow is a fully-populated page row. Once built it needs no further
// lookups to render.
type HistoryRow struct {
	Match      domain.Match      `json:"match"`
	WeaponName string            `json:"weaponName"`
	StageName  string            `json:"stageName"`
	Teams      []TeamRow         `json:"teams,omitempty"`
	Waves      []domain.CoopWave `json:"waves,omitempty"`
}

type TeamRow struct {
	domain.Team
	Players []PlayerRow `json:"players"`
}

type PlayerRow struct {
	domain.Player
	WeaponName string `json:"weaponName"`
}

// HistoryService compiles filters, runs the base query, and enriches each
// page row. Enrichment is a deliberate bounded N+1: a handful of lookups
// per row, bounded by page size, instead of one wide join.
type HistoryService struct {
	matches  *repository.MatchRepository
	assets   *repository.AssetRepository
	tracker  *livequery.Tracker
	notifier *livequery.Notifier
	logger   zerolog.Logger
}

func NewHistoryService(
	matches *repository.MatchRepository,
	assets *repository.AssetRepository,
	tracker *livequery.Tracker,
	notifier *livequery.Notifier,
	logger zerolog.Logger,
) *HistoryService {
	return &HistoryService{
		matches:  matches,
		assets:   assets,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
	}
}

// RunOnce executes the filtered, paginated query a single time.
func (s *HistoryService) RunOnce(ctx context.Context, accountID string, f domain.Filter, page domain.Page) ([]HistoryRow, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	compiled, err := s.compile(ctx, accountID, f, page)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, compiled)
}

// OpenLive wraps the same compiled-query path in a subscription that
// re-runs on any mutation of the tables the query reads, or on an explicit
// broadcast. Invalid filters and pages are rejected before the
// subscription starts.
func (s *HistoryService) OpenLive(ctx context.Context, accountID string, f domain.Filter, page domain.Page) (*livequery.Subscription[[]HistoryRow], error) {
	compiled, err := s.compile(ctx, accountID, f, page)
	if err != nil {
		return nil, err
	}

	run := func(runCtx context.Context) ([]HistoryRow, error) {
		// Recompile per run so an open-ended End keeps tracking "now".
		c, err := s.compile(runCtx, accountID, f, page)
		if err != nil {
			return nil, err
		}
		return s.execute(runCtx, c)
	}

	return livequery.Open(ctx, s.logger, s.tracker, s.notifier, compiled.Tables, run), nil
}

// SetFavorite flips the favorite flag on a single match through the
// tracked write path, so open subscriptions re-run on their own.
func (s *HistoryService) SetFavorite(ctx context.Context, id string, value bool) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.matches.SetFavorite(ctx, id, value)
}

// compile resolves the engine-supplied time defaults and builds the bound
// query. A missing Start becomes the earliest known match time.
func (s *HistoryService) compile(ctx context.Context, accountID string, f domain.Filter, page domain.Page) (*query.Compiled, error) {
	if f.Start.IsZero() {
		earliest, err := s.matches.EarliestMatchTime(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if earliest != nil {
			f.Start = *earliest
		}
	}
	return query.Compile(accountID, f, page)
}

func (s *HistoryService) execute(ctx context.Context, compiled *query.Compiled) ([]HistoryRow, error) {
	matches, err := s.matches.ListCompiled(ctx, compiled)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, matches)
}

// enrich attaches supplementary data to each base row. Rows are enriched
// concurrently; each row is assembled atomically and a failed lookup
// degrades that row to defaults rather than failing the page.
func (s *HistoryService) enrich(ctx context.Context, matches []domain.Match) ([]HistoryRow, error) {
	rows := make([]HistoryRow, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.EnrichConcurrency)
	for i := range matches {
		i := i
		g.Go(func() error {
			rows[i] = s.enrichOne(gctx, matches[i])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *HistoryService) enrichOne(ctx context.Context, m domain.Match) HistoryRow {
	row := HistoryRow{Match: m}

	row.WeaponName = s.assetName(ctx, domain.AssetWeapon, m.WeaponID)
	row.StageName = s.assetName(ctx, domain.AssetStage, m.StageID)

	switch m.Kind {
	case domain.KindBattle:
		row.Teams = s.teamRows(ctx, m.ID)
	case domain.KindCoop:
		waves, err := s.matches.WavesFor(ctx, m.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("wave lookup failed, keeping base row")
			break
		}
		row.Waves = waves
	}
	return row
}

func (s *HistoryService) teamRows(ctx context.Context, matchID string) []TeamRow {
	teams, err := s.matches.TeamsFor(ctx, matchID)
	if err != nil {
		s.logger.Warn().Err(err).Str("match_id", matchID).Msg("team lookup failed, keeping base row")
		return nil
	}
	players, err := s.matches.PlayersFor(ctx, matchID)
	if err != nil {
		s.logger.Warn().Err(err).Str("match_id", matchID).Msg("player lookup failed, keeping base row")
		players = nil
	}

	rows := make([]TeamRow, len(teams))
	for i, t := range teams {
		rows[i] = TeamRow{Team: t}
		for _, p := range players {
			if p.TeamOrder != t.TeamOrder {
				continue
			}
			rows[i].Players = append(rows[i].Players, PlayerRow{
				Player:     p,
				WeaponName: s.assetName(ctx, domain.AssetWeapon, p.WeaponID),
			})
		}
	}
	return rows
}

// assetName resolves a display name, returning "" on a miss. Misses are
// expected for ids newer than the seeded asset table.
func (s *HistoryService) assetName(ctx context.Context, kind domain.AssetKind, id int) string {
	asset, err := s.assets.ResolveName(ctx, kind, id)
	if err != nil {
		if !errors.Is(err, domain.ErrLookupMiss) {
			s.logger.Warn().Err(err).Str("kind", string(kind)).Int("id", id).Msg("asset lookup failed")
		}
		return ""
	}
	return asset.Name
}
