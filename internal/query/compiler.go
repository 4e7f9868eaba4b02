// Package query compiles a Filter value into a fully-bound SQL statement.
// Every caller-influenced value is passed as a placeholder argument,
// including each element of an IN set; nothing is interpolated into the
// statement text.
package query

import (
	"strings"
	"time"

	"splat-tracker/internal/domain"
)

// MatchColumns is the canonical select list for match rows; the repository
// scan order must match it.
const MatchColumns = `id, account_id, kind, mode, rule, stage_id, weapon_id,
	played_time, duration_seconds, judgement, knockout,
	kill, death, assist, special, paint,
	udemae, battle_power, fest_contribution, fest_dragon,
	coop_grade_id, coop_grade_point, coop_wave_cleared, coop_hazard,
	group_id, is_deleted, is_favorite, created_at, updated_at`

// Compiled is a ready-to-execute parameterized query together with the set
// of tables it reads, which a live subscription uses as its dependency set.
type Compiled struct {
	SQL    string
	Args   []any
	Tables []string
}

// DependsOn reports whether the query reads the given table.
func (c *Compiled) DependsOn(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Compile translates a filter and page into a bound SELECT over matches.
//
// The time range is always constrained: a zero Start falls back to the Unix
// epoch (the service layer substitutes the earliest known match time before
// calling when it has one) and a zero End falls back to now.
func Compile(accountID string, f domain.Filter, p domain.Page) (*Compiled, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := f.Start
	end := f.End
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.After(end) {
		return nil, domain.ErrInvalidFilter
	}
	if f.Player != nil && f.Player.IsZero() {
		return nil, domain.ErrInvalidFilter
	}

	var b strings.Builder
	args := make([]any, 0, 8)
	tables := []string{"matches"}

	b.WriteString("SELECT ")
	b.WriteString(MatchColumns)
	b.WriteString(" FROM matches WHERE account_id = ?")
	args = append(args, accountID)

	// played_time is stored as unix seconds.
	b.WriteString(" AND played_time BETWEEN ? AND ?")
	args = append(args, start.Unix(), end.Unix())

	writeIn(&b, &args, "mode", f.Modes)
	writeIn(&b, &args, "rule", f.Rules)
	writeIn(&b, &args, "stage_id", f.StageIDs)
	writeIn(&b, &args, "weapon_id", f.WeaponIDs)

	// Asymmetric tri-state: both flags set means no visibility clause.
	switch {
	case f.ShowOnlyActive && !f.ShowDeleted:
		b.WriteString(" AND is_deleted = 0")
	case f.ShowDeleted && !f.ShowOnlyActive:
		b.WriteString(" AND is_deleted = 1")
	}

	if f.FavoritesOnly {
		b.WriteString(" AND is_favorite = 1")
	}

	// The identity predicate ranges over participants, a one-to-many
	// relation, so it is an existence subquery rather than a flat AND.
	if f.Player != nil {
		b.WriteString(" AND EXISTS (SELECT 1 FROM match_players mp WHERE mp.match_id = matches.id")
		if f.Player.PlayerID != "" {
			b.WriteString(" AND mp.player_id = ?")
			args = append(args, f.Player.PlayerID)
		}
		if f.Player.Name != "" {
			b.WriteString(" AND mp.name = ?")
			args = append(args, f.Player.Name)
		}
		if f.Player.NameID != "" {
			b.WriteString(" AND mp.name_id = ?")
			args = append(args, f.Player.NameID)
		}
		b.WriteString(")")
		tables = append(tables, "match_players")
	}

	// Tie-break by id so a page boundary is reproducible when two matches
	// share a timestamp.
	b.WriteString(" ORDER BY played_time DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, p.Limit, p.Offset)

	return &Compiled{SQL: b.String(), Args: args, Tables: tables}, nil
}

// writeIn emits "AND col IN (?,...)" with one placeholder per element.
// An empty set means unconstrained and emits nothing.
func writeIn[T any](b *strings.Builder, args *[]any, column string, values []T) {
	if len(values) == 0 {
		return
	}
	b.WriteString(" AND ")
	b.WriteString(column)
	b.WriteString(" IN (")
	for i, v := range values {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		*args = append(*args, v)
	}
	b.WriteString(")")
}

// Placeholders returns "?,?,..." for n values, used by the bulk mutation
// path to bind one chunk of ids.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
