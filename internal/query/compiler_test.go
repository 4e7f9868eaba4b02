package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"splat-tracker/internal/domain"
)

func TestCompileEmptySetsAreUnconstrained(t *testing.T) {
	t.Parallel()

	c, err := Compile("acct", domain.Filter{}, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	for _, clause := range []string{"mode IN", "rule IN", "stage_id IN", "weapon_id IN", "EXISTS"} {
		if strings.Contains(c.SQL, clause) {
			t.Errorf("empty filter emitted %q:\n%s", clause, c.SQL)
		}
	}

	// account id, two time bounds, limit, offset
	if len(c.Args) != 5 {
		t.Errorf("args = %d, want 5: %v", len(c.Args), c.Args)
	}
}

func TestCompileInPlaceholdersPerElement(t *testing.T) {
	t.Parallel()

	f := domain.Filter{
		Modes:     []string{"BANKARA", "X_MATCH"},
		StageIDs:  []int{1, 2, 3},
		WeaponIDs: []int{40},
	}
	c, err := Compile("acct", f, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if !strings.Contains(c.SQL, "mode IN (?,?)") {
		t.Errorf("missing two-element mode clause:\n%s", c.SQL)
	}
	if !strings.Contains(c.SQL, "stage_id IN (?,?,?)") {
		t.Errorf("missing three-element stage clause:\n%s", c.SQL)
	}
	if !strings.Contains(c.SQL, "weapon_id IN (?)") {
		t.Errorf("missing one-element weapon clause:\n%s", c.SQL)
	}

	// Every value must ride as a bound arg, never in the statement text.
	if strings.Contains(c.SQL, "BANKARA") {
		t.Errorf("filter value interpolated into SQL:\n%s", c.SQL)
	}
	// base 5 + 2 modes + 3 stages + 1 weapon
	if len(c.Args) != 11 {
		t.Errorf("args = %d, want 11: %v", len(c.Args), c.Args)
	}
}

func TestCompileVisibilityTriState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		active      bool
		deleted     bool
		wantClause  string
		wantAbsence bool
	}{
		{name: "active only", active: true, wantClause: "is_deleted = 0"},
		{name: "deleted only", deleted: true, wantClause: "is_deleted = 1"},
		{name: "both flags return everything", active: true, deleted: true, wantAbsence: true},
		{name: "neither flag returns everything", wantAbsence: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := domain.Filter{ShowOnlyActive: tt.active, ShowDeleted: tt.deleted}
			c, err := Compile("acct", f, domain.Page{Limit: 10})
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if tt.wantAbsence {
				if strings.Contains(c.SQL, "is_deleted") {
					t.Errorf("unexpected visibility clause:\n%s", c.SQL)
				}
				return
			}
			if !strings.Contains(c.SQL, tt.wantClause) {
				t.Errorf("missing %q:\n%s", tt.wantClause, c.SQL)
			}
		})
	}
}

func TestCompileFavorites(t *testing.T) {
	t.Parallel()

	c, err := Compile("acct", domain.Filter{FavoritesOnly: true}, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(c.SQL, "is_favorite = 1") {
		t.Errorf("missing favorites clause:\n%s", c.SQL)
	}
}

func TestCompilePlayerPredicateIsSubquery(t *testing.T) {
	t.Parallel()

	f := domain.Filter{Player: &domain.PlayerIdentity{Name: "Woomy"}}
	c, err := Compile("acct", f, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if !strings.Contains(c.SQL, "EXISTS (SELECT 1 FROM match_players") {
		t.Errorf("player predicate must be an existence subquery:\n%s", c.SQL)
	}
	if !c.DependsOn("match_players") {
		t.Errorf("dependency set missing match_players: %v", c.Tables)
	}

	// Without the predicate the dependency set is just the match table.
	c2, err := Compile("acct", domain.Filter{}, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c2.DependsOn("match_players") {
		t.Errorf("unexpected match_players dependency: %v", c2.Tables)
	}
}

func TestCompileStableOrdering(t *testing.T) {
	t.Parallel()

	c, err := Compile("acct", domain.Filter{}, domain.Page{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(c.SQL, "ORDER BY played_time DESC, id DESC LIMIT ? OFFSET ?") {
		t.Errorf("missing stable ordering and bound pagination:\n%s", c.SQL)
	}
	if c.Args[len(c.Args)-2] != 10 || c.Args[len(c.Args)-1] != 20 {
		t.Errorf("limit/offset not bound last: %v", c.Args)
	}
}

func TestCompileRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		filter  domain.Filter
		page    domain.Page
		wantErr error
	}{
		{name: "zero limit", page: domain.Page{Limit: 0}, wantErr: domain.ErrInvalidPage},
		{name: "negative limit", page: domain.Page{Limit: -5}, wantErr: domain.ErrInvalidPage},
		{name: "negative offset", page: domain.Page{Limit: 10, Offset: -1}, wantErr: domain.ErrInvalidPage},
		{
			name: "inverted time range",
			filter: domain.Filter{
				Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			},
			page:    domain.Page{Limit: 10},
			wantErr: domain.ErrInvalidFilter,
		},
		{
			name:    "empty player identity",
			filter:  domain.Filter{Player: &domain.PlayerIdentity{}},
			page:    domain.Page{Limit: 10},
			wantErr: domain.ErrInvalidFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("acct", tt.filter, tt.page)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?,?,?"},
	}
	for _, tt := range tests {
		if got := Placeholders(tt.n); got != tt.want {
			t.Errorf("Placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
