package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"splat-tracker/internal/api"
	"splat-tracker/internal/config"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
)

func newIngest(t *testing.T) (*IngestService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	client := api.NewClient(&config.Config{})
	return NewIngestService(env.matches, client, zerolog.Nop()), env
}

func ingestAt(t *testing.T, svc *IngestService, id string, kind domain.MatchKind, played time.Time) int64 {
	t.Helper()
	m := battle(id, "acct", played)
	m.Kind = kind
	m.GroupID = 0
	ok, err := svc.Ingest(context.Background(), &repository.MatchBundle{Match: m})
	if err != nil {
		t.Fatalf("ingest %s: %v", id, err)
	}
	if !ok {
		t.Fatalf("ingest %s reported not inserted", id)
	}

	got, err := svc.matches.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return got.GroupID
}

func TestIngestAssignsSessionGroups(t *testing.T) {
	svc, _ := newIngest(t)
	base := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

	// First match of the account opens group 1.
	if g := ingestAt(t, svc, "s1", domain.KindBattle, base); g != 1 {
		t.Errorf("first match group = %d, want 1", g)
	}
	// Within the gap of the latest battle: same session.
	if g := ingestAt(t, svc, "s2", domain.KindBattle, base.Add(10*time.Minute)); g != 1 {
		t.Errorf("close follow-up group = %d, want 1", g)
	}
	// Exactly at the gap still counts as the same session.
	if g := ingestAt(t, svc, "s3", domain.KindBattle, base.Add(40*time.Minute)); g != 1 {
		t.Errorf("boundary follow-up group = %d, want 1", g)
	}
	// Past the gap: a fresh session.
	if g := ingestAt(t, svc, "s4", domain.KindBattle, base.Add(2*time.Hour)); g != 2 {
		t.Errorf("late match group = %d, want 2", g)
	}
}

func TestIngestGroupsPerKind(t *testing.T) {
	svc, _ := newIngest(t)
	base := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

	if g := ingestAt(t, svc, "b1", domain.KindBattle, base); g != 1 {
		t.Errorf("battle group = %d, want 1", g)
	}
	// A co-op run minutes later is a different kind and never joins the
	// battle session; it opens the next group id instead.
	if g := ingestAt(t, svc, "c1", domain.KindCoop, base.Add(5*time.Minute)); g != 2 {
		t.Errorf("coop group = %d, want 2", g)
	}
	// Each kind keeps extending its own session independently.
	if g := ingestAt(t, svc, "b2", domain.KindBattle, base.Add(8*time.Minute)); g != 1 {
		t.Errorf("second battle group = %d, want 1", g)
	}
	if g := ingestAt(t, svc, "c2", domain.KindCoop, base.Add(12*time.Minute)); g != 2 {
		t.Errorf("second coop group = %d, want 2", g)
	}
}

func TestIngestOutOfOrderDeliveryJoinsSession(t *testing.T) {
	svc, _ := newIngest(t)
	base := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

	if g := ingestAt(t, svc, "o1", domain.KindBattle, base); g != 1 {
		t.Errorf("group = %d, want 1", g)
	}
	// Sync can deliver an older match after a newer one; the absolute gap
	// decides membership.
	if g := ingestAt(t, svc, "o2", domain.KindBattle, base.Add(-15*time.Minute)); g != 1 {
		t.Errorf("out-of-order group = %d, want 1", g)
	}
}

func TestIngestRedeliveryIsIdempotent(t *testing.T) {
	svc, _ := newIngest(t)
	played := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

	m := battle("r1", "acct", played)
	ok, err := svc.Ingest(context.Background(), &repository.MatchBundle{Match: m})
	if err != nil || !ok {
		t.Fatalf("first ingest = %v/%v", ok, err)
	}

	ok, err = svc.Ingest(context.Background(), &repository.MatchBundle{Match: m})
	if err != nil {
		t.Fatalf("redelivery must not error: %v", err)
	}
	if ok {
		t.Error("redelivery reported as a new insert")
	}
}

func TestIngestKeepsExplicitGroup(t *testing.T) {
	svc, _ := newIngest(t)

	m := battle("g1", "acct", time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC))
	m.GroupID = 42
	ok, err := svc.Ingest(context.Background(), &repository.MatchBundle{Match: m})
	if err != nil || !ok {
		t.Fatalf("ingest = %v/%v", ok, err)
	}

	got, err := svc.matches.Get(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GroupID != 42 {
		t.Errorf("group = %d, want the caller-assigned 42", got.GroupID)
	}
}

func TestSyncWithoutRemoteConfigured(t *testing.T) {
	svc, _ := newIngest(t)

	_, err := svc.Sync(context.Background(), "acct")
	if !errors.Is(err, api.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestEarliestKnownMatchTime(t *testing.T) {
	svc, _ := newIngest(t)

	got, err := svc.EarliestKnownMatchTime(context.Background(), "acct")
	if err != nil {
		t.Fatalf("earliest on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("earliest on empty store = %v, want nil", got)
	}

	oldest := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	ingestAt(t, svc, "e1", domain.KindBattle, oldest.Add(time.Hour))
	ingestAt(t, svc, "e2", domain.KindBattle, oldest)

	got, err = svc.EarliestKnownMatchTime(context.Background(), "acct")
	if err != nil {
		t.Fatalf("earliest: %v", err)
	}
	if got == nil || !got.Equal(oldest) {
		t.Errorf("earliest = %v, want %v", got, oldest)
	}
}
