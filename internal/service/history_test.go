package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"splat-tracker/internal/domain"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
)

func newHistory(t *testing.T) (*HistoryService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	svc := NewHistoryService(env.matches, env.assets, env.tracker, env.notifier, zerolog.Nop())
	return svc, env
}

func TestRunOnceEnrichesBattleRows(t *testing.T) {
	svc, env := newHistory(t)

	played := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)
	m := battle("h1", "acct", played) // weapon 40 on stage 1
	bundle := &repository.MatchBundle{
		Match: m,
		Teams: []domain.Team{
			{MatchID: "h1", TeamOrder: 0, IsMyTeam: true},
			{MatchID: "h1", TeamOrder: 1},
		},
		Players: []domain.Player{
			{MatchID: "h1", TeamOrder: 0, PlayerOrder: 0, Name: "Woomy", WeaponID: 40, IsMyself: true},
			{MatchID: "h1", TeamOrder: 0, PlayerOrder: 1, Name: "Ngyes", WeaponID: 1010},
			{MatchID: "h1", TeamOrder: 1, PlayerOrder: 0, Name: "Veemo", WeaponID: 2010},
		},
	}
	if err := env.matches.InsertMatch(context.Background(), bundle); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := svc.RunOnce(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	row := rows[0]
	if row.WeaponName != "Splattershot" {
		t.Errorf("weapon name = %q, want Splattershot", row.WeaponName)
	}
	if row.StageName != "Scorch Gorge" {
		t.Errorf("stage name = %q, want Scorch Gorge", row.StageName)
	}
	if len(row.Teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(row.Teams))
	}
	if len(row.Teams[0].Players) != 2 || len(row.Teams[1].Players) != 1 {
		t.Fatalf("player split = %d/%d, want 2/1",
			len(row.Teams[0].Players), len(row.Teams[1].Players))
	}
	if got := row.Teams[0].Players[1].WeaponName; got != "Splat Roller" {
		t.Errorf("teammate weapon = %q, want Splat Roller", got)
	}
	if got := row.Teams[1].Players[0].WeaponName; got != "Splat Charger" {
		t.Errorf("opponent weapon = %q, want Splat Charger", got)
	}
	if len(row.Waves) != 0 {
		t.Errorf("battle row carries waves: %+v", row.Waves)
	}
}

func TestRunOnceDegradesOnAssetMiss(t *testing.T) {
	svc, env := newHistory(t)

	m := battle("h2", "acct", time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC))
	m.WeaponID = 999990
	m.StageID = 999
	env.insertBattle(t, m)

	rows, err := svc.RunOnce(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	// Ids newer than the seeded asset table resolve to empty names; the
	// page still renders.
	if rows[0].WeaponName != "" || rows[0].StageName != "" {
		t.Errorf("names = %q/%q, want empty on lookup miss",
			rows[0].WeaponName, rows[0].StageName)
	}
}

func TestRunOnceEnrichesCoopWaves(t *testing.T) {
	svc, env := newHistory(t)

	m := battle("h3", "acct", time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC))
	m.Kind = domain.KindCoop
	m.Mode = "SALMON"
	bundle := &repository.MatchBundle{
		Match: m,
		Waves: []domain.CoopWave{
			{MatchID: "h3", WaveNumber: 1, DeliverCount: 25, Quota: 23},
			{MatchID: "h3", WaveNumber: 2, DeliverCount: 28, Quota: 25},
			{MatchID: "h3", WaveNumber: 3, DeliverCount: 30, Quota: 27},
		},
	}
	if err := env.matches.InsertMatch(context.Background(), bundle); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := svc.RunOnce(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if len(rows[0].Waves) != 3 {
		t.Errorf("waves = %d, want 3", len(rows[0].Waves))
	}
	if len(rows[0].Teams) != 0 {
		t.Errorf("coop row carries teams: %+v", rows[0].Teams)
	}
}

func TestRunOncePreservesQueryOrder(t *testing.T) {
	svc, env := newHistory(t)
	base := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

	// Inserted oldest-first; the page must come back newest-first even
	// though rows are enriched concurrently.
	ids := []string{"o1", "o2", "o3", "o4", "o5"}
	for i, id := range ids {
		env.insertBattle(t, battle(id, "acct", base.Add(time.Duration(i)*time.Minute)))
	}

	rows, err := svc.RunOnce(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(rows) != len(ids) {
		t.Fatalf("rows = %d, want %d", len(rows), len(ids))
	}
	for i, row := range rows {
		if want := ids[len(ids)-1-i]; row.Match.ID != want {
			t.Errorf("row %d = %s, want %s", i, row.Match.ID, want)
		}
	}
}

func TestRunOnceRejectsInvalidInput(t *testing.T) {
	svc, _ := newHistory(t)

	_, err := svc.RunOnce(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: 0})
	if !errors.Is(err, domain.ErrInvalidPage) {
		t.Fatalf("err = %v, want ErrInvalidPage", err)
	}

	f := domain.Filter{Player: &domain.PlayerIdentity{}}
	_, err = svc.RunOnce(context.Background(), "acct", f, domain.Page{Limit: 10})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("err = %v, want ErrInvalidFilter", err)
	}
}

func TestOpenLiveRejectsInvalidInputBeforeStarting(t *testing.T) {
	svc, _ := newHistory(t)

	_, err := svc.OpenLive(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: -1})
	if !errors.Is(err, domain.ErrInvalidPage) {
		t.Fatalf("err = %v, want ErrInvalidPage", err)
	}
}

func TestOpenLiveDeliversFreshPagesOnInsert(t *testing.T) {
	svc, env := newHistory(t)
	base := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)
	env.insertBattle(t, battle("v1", "acct", base))

	sub, err := svc.OpenLive(context.Background(), "acct", domain.DefaultFilter(), domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("open live: %v", err)
	}
	defer sub.Cancel()

	rows := waitForRows(t, sub)
	if len(rows) != 1 {
		t.Fatalf("initial page rows = %d, want 1", len(rows))
	}

	env.insertBattle(t, battle("v2", "acct", base.Add(time.Minute)))

	// Deliveries coalesce, so read until the page reflects the insert.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case rows = <-sub.Results():
			if len(rows) == 2 {
				if rows[0].Match.ID != "v2" {
					t.Fatalf("newest row = %s, want v2", rows[0].Match.ID)
				}
				return
			}
		case <-deadline:
			t.Fatalf("live page never reflected insert; last size %d", len(rows))
		}
	}
}

func waitForRows(t *testing.T, sub *livequery.Subscription[[]HistoryRow]) []HistoryRow {
	t.Helper()
	select {
	case rows := <-sub.Results():
		return rows
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live page delivery")
		panic("unreachable")
	}
}
