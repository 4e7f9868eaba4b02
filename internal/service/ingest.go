package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"splat-tracker/internal/api"
	"splat-tracker/internal/constants"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// IngestService is the sync boundary. It accepts parsed match records,
// inserts them idempotently, and assigns each one a session group at
// ingestion time. Group membership never changes afterwards.
type IngestService struct {
	matches *repository.MatchRepository
	client  *api.Client
	logger  zerolog.Logger
}

func NewIngestService(matches *repository.MatchRepository, client *api.Client, logger zerolog.Logger) *IngestService {
	return &IngestService{matches: matches, client: client, logger: logger}
}

// Ingest inserts one match with its sub-records. Redelivered matches are
// reported as not inserted, without error. A zero GroupID is assigned here.
func (s *IngestService) Ingest(ctx context.Context, b *repository.MatchBundle) (bool, error) {
	if b.Match.GroupID == 0 {
		groupID, err := s.assignGroup(ctx, &b.Match)
		if err != nil {
			return false, err
		}
		b.Match.GroupID = groupID
	}

	err := s.matches.InsertMatch(ctx, b)
	if errors.Is(err, domain.ErrDuplicateKey) {
		s.logger.Debug().Str("match_id", b.Match.ID).Msg("match already stored, skipping")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// assignGroup reuses the newest group of the same kind when the new match
// falls within SessionGap of it, otherwise opens a new group. Group ids
// increase monotonically per account.
func (s *IngestService) assignGroup(ctx context.Context, m *domain.Match) (int64, error) {
	latestGroup, latestTime, err := s.matches.LatestForKind(ctx, m.AccountID, m.Kind)
	if err != nil {
		return 0, err
	}

	if latestGroup != nil && latestTime != nil {
		gap := m.PlayedTime.Sub(*latestTime)
		if gap < 0 {
			gap = -gap
		}
		if gap <= constants.SessionGap {
			return *latestGroup, nil
		}
	}

	maxID, err := s.matches.MaxGroupID(ctx, m.AccountID)
	if err != nil {
		return 0, err
	}
	return maxID + 1, nil
}

// EarliestKnownMatchTime exposes the backfill starting point to the sync
// collaborator. Nil when nothing has been synced yet.
func (s *IngestService) EarliestKnownMatchTime(ctx context.Context, accountID string) (*time.Time, error) {
	return s.matches.EarliestMatchTime(ctx, accountID)
}

// Sync pulls the latest battle and co-op results from the remote service
// and ingests them. Returns the number of newly inserted matches.
func (s *IngestService) Sync(ctx context.Context, accountID string) (int, error) {
	if !s.client.Enabled() {
		return 0, api.ErrNotConfigured
	}

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(apiCtx)
	var battles *api.BattleListResponse
	var coop *api.CoopListResponse

	g.Go(func() error {
		var err error
		battles, err = s.client.GetLatestBattles(gCtx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		coop, err = s.client.GetLatestCoopResults(gCtx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("fetch latest results: %w", err)
	}

	inserted := 0
	for _, b := range battles.Results {
		ok, err := s.Ingest(ctx, battleBundle(accountID, b))
		if err != nil {
			return inserted, fmt.Errorf("ingest battle %s: %w", b.ID, err)
		}
		if ok {
			inserted++
		}
	}
	for _, c := range coop.Results {
		ok, err := s.Ingest(ctx, coopBundle(accountID, c))
		if err != nil {
			return inserted, fmt.Errorf("ingest coop run %s: %w", c.ID, err)
		}
		if ok {
			inserted++
		}
	}

	s.logger.Info().Str("account_id", accountID).Int("inserted", inserted).Msg("sync completed")
	return inserted, nil
}

func battleBundle(accountID string, r api.BattleResult) *repository.MatchBundle {
	m := domain.Match{
		ID:               r.ID,
		AccountID:        accountID,
		Kind:             domain.KindBattle,
		Mode:             r.Mode,
		Rule:             r.Rule,
		StageID:          r.StageID,
		PlayedTime:       r.PlayedTime.UTC(),
		DurationSeconds:  r.DurationSeconds,
		Judgement:        domain.Judgement(r.Judgement),
		Knockout:         r.Knockout,
		Udemae:           r.Udemae,
		BattlePower:      r.BattlePower,
		FestContribution: r.FestContribution,
		FestDragon:       r.FestDragon,
	}

	b := &repository.MatchBundle{}
	for ti, t := range r.Teams {
		b.Teams = append(b.Teams, domain.Team{
			MatchID:    r.ID,
			TeamOrder:  ti,
			Color:      t.Color,
			PaintRatio: t.PaintRatio,
			Score:      t.Score,
			IsMyTeam:   t.IsMyTeam,
		})
		for pi, p := range t.Players {
			b.Players = append(b.Players, domain.Player{
				MatchID:     r.ID,
				TeamOrder:   ti,
				PlayerOrder: pi,
				PlayerID:    p.PlayerID,
				Name:        p.Name,
				NameID:      p.NameID,
				WeaponID:    p.WeaponID,
				Kill:        p.Kill,
				Death:       p.Death,
				Assist:      p.Assist,
				Special:     p.Special,
				Paint:       p.Paint,
				IsMyself:    p.IsMyself,
			})
			if p.IsMyself {
				m.WeaponID = p.WeaponID
				m.Kill = p.Kill
				m.Death = p.Death
				m.Assist = p.Assist
				m.Special = p.Special
				m.Paint = p.Paint
			}
		}
	}
	b.Match = m
	return b
}

func coopBundle(accountID string, r api.CoopResult) *repository.MatchBundle {
	judgement := domain.JudgementLose
	if r.Cleared {
		judgement = domain.JudgementWin
	}

	m := domain.Match{
		ID:              r.ID,
		AccountID:       accountID,
		Kind:            domain.KindCoop,
		Mode:            "SALMON",
		StageID:         r.StageID,
		WeaponID:        r.WeaponID,
		PlayedTime:      r.PlayedTime.UTC(),
		DurationSeconds: r.DurationSeconds,
		Judgement:       judgement,
		Kill:            r.Kill,
		Death:           r.Death,
		Paint:           r.GoldenDeliver,
		CoopGradeID:     r.GradeID,
		CoopGradePoint:  r.GradePoint,
		CoopWaveCleared: r.WaveCleared,
		CoopHazard:      r.Hazard,
	}

	b := &repository.MatchBundle{Match: m}
	for _, w := range r.Waves {
		b.Waves = append(b.Waves, domain.CoopWave{
			MatchID:      r.ID,
			WaveNumber:   w.WaveNumber,
			EventID:      w.EventID,
			WaterLevel:   w.WaterLevel,
			DeliverCount: w.DeliverCount,
			Quota:        w.Quota,
		})
	}
	for _, e := range r.Enemies {
		b.Enemies = append(b.Enemies, domain.CoopEnemy{
			MatchID:         r.ID,
			EnemyID:         e.EnemyID,
			DefeatCount:     e.DefeatCount,
			TeamDefeatCount: e.TeamDefeatCount,
			PopCount:        e.PopCount,
		})
	}
	return b
}
