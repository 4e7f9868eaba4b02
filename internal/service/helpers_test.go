package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"splat-tracker/internal/config"
	"splat-tracker/internal/database"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
)

type testEnv struct {
	matches  *repository.MatchRepository
	assets   *repository.AssetRepository
	tracker  *livequery.Tracker
	notifier *livequery.Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tracker := livequery.NewTracker()
	return &testEnv{
		matches:  repository.NewMatchRepository(db, tracker, zerolog.Nop()),
		assets:   repository.NewAssetRepository(db, zerolog.Nop()),
		tracker:  tracker,
		notifier: livequery.NewNotifier(),
	}
}

func (e *testEnv) insertBattle(t *testing.T, m domain.Match) {
	t.Helper()
	if err := e.matches.InsertMatch(context.Background(), &repository.MatchBundle{Match: m}); err != nil {
		t.Fatalf("insert %s: %v", m.ID, err)
	}
}

func battle(id, accountID string, played time.Time) domain.Match {
	return domain.Match{
		ID:              id,
		AccountID:       accountID,
		Kind:            domain.KindBattle,
		Mode:            "BANKARA",
		Rule:            "AREA",
		StageID:         1,
		WeaponID:        40,
		PlayedTime:      played,
		DurationSeconds: 180,
		Judgement:       domain.JudgementWin,
		GroupID:         1,
	}
}
