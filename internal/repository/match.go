package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"splat-tracker/internal/domain"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/query"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// MatchRepository is the entity store for match rows and their sub-records.
// Rows are append-only from the sync path; the only mutations are the
// is_deleted and is_favorite flags.
type MatchRepository struct {
	db      *sql.DB
	tracker *livequery.Tracker
	logger  zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, tracker *livequery.Tracker, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:      sqlDB,
		tracker: tracker,
		logger:  logger,
	}
}

// MatchBundle is one match with all of its sub-records, inserted atomically.
type MatchBundle struct {
	Match   domain.Match
	Teams   []domain.Team
	Players []domain.Player
	Waves   []domain.CoopWave
	Enemies []domain.CoopEnemy
}

// InsertMatch inserts a match and its sub-records in one transaction.
// A primary-key collision returns domain.ErrDuplicateKey; sync redelivers,
// so callers treat that as success.
func (r *MatchRepository) InsertMatch(ctx context.Context, b *MatchBundle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("insert match", err)
	}
	defer tx.Rollback()

	m := b.Match
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO matches(
		id, account_id, kind, mode, rule, stage_id, weapon_id,
		played_time, duration_seconds, judgement, knockout,
		kill, death, assist, special, paint,
		udemae, battle_power, fest_contribution, fest_dragon,
		coop_grade_id, coop_grade_point, coop_wave_cleared, coop_hazard,
		group_id, is_deleted, is_favorite, created_at, updated_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.AccountID, string(m.Kind), m.Mode, m.Rule, m.StageID, m.WeaponID,
		m.PlayedTime.UTC().Unix(), m.DurationSeconds, string(m.Judgement), m.Knockout,
		m.Kill, m.Death, m.Assist, m.Special, m.Paint,
		m.Udemae, m.BattlePower, m.FestContribution, m.FestDragon,
		m.CoopGradeID, m.CoopGradePoint, m.CoopWaveCleared, m.CoopHazard,
		m.GroupID, m.IsDeleted, m.IsFavorite, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateKey
		}
		return domain.StoreError("insert match", err)
	}

	touched := []string{"matches"}

	for _, t := range b.Teams {
		if _, err := tx.ExecContext(ctx, `INSERT INTO match_teams(
			match_id, team_order, color, paint_ratio, score, is_my_team
		) VALUES (?,?,?,?,?,?)`,
			m.ID, t.TeamOrder, t.Color, t.PaintRatio, t.Score, t.IsMyTeam,
		); err != nil {
			return domain.StoreError("insert match team", err)
		}
	}
	if len(b.Teams) > 0 {
		touched = append(touched, "match_teams")
	}

	for _, p := range b.Players {
		if _, err := tx.ExecContext(ctx, `INSERT INTO match_players(
			match_id, team_order, player_order, player_id, name, name_id,
			weapon_id, kill, death, assist, special, paint, is_myself
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			m.ID, p.TeamOrder, p.PlayerOrder, p.PlayerID, p.Name, p.NameID,
			p.WeaponID, p.Kill, p.Death, p.Assist, p.Special, p.Paint, p.IsMyself,
		); err != nil {
			return domain.StoreError("insert match player", err)
		}
	}
	if len(b.Players) > 0 {
		touched = append(touched, "match_players")
	}

	for _, w := range b.Waves {
		if _, err := tx.ExecContext(ctx, `INSERT INTO coop_waves(
			match_id, wave_number, event_id, water_level, deliver_count, quota
		) VALUES (?,?,?,?,?,?)`,
			m.ID, w.WaveNumber, w.EventID, w.WaterLevel, w.DeliverCount, w.Quota,
		); err != nil {
			return domain.StoreError("insert coop wave", err)
		}
	}
	if len(b.Waves) > 0 {
		touched = append(touched, "coop_waves")
	}

	for _, e := range b.Enemies {
		if _, err := tx.ExecContext(ctx, `INSERT INTO coop_enemies(
			match_id, enemy_id, defeat_count, team_defeat_count, pop_count
		) VALUES (?,?,?,?,?)`,
			m.ID, e.EnemyID, e.DefeatCount, e.TeamDefeatCount, e.PopCount,
		); err != nil {
			return domain.StoreError("insert coop enemy", err)
		}
	}
	if len(b.Enemies) > 0 {
		touched = append(touched, "coop_enemies")
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("insert match", err)
	}

	r.tracker.MarkChanged(touched...)
	return nil
}

// Get returns a match by id, or nil when no row exists.
func (r *MatchRepository) Get(ctx context.Context, id string) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+query.MatchColumns+" FROM matches WHERE id = ?", id)

	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("get match", err)
	}
	return m, nil
}

// SetFavorite flips the favorite flag on one match. Independent of the
// deleted state.
func (r *MatchRepository) SetFavorite(ctx context.Context, id string, value bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE matches SET is_favorite = ?, updated_at = ? WHERE id = ?",
		value, time.Now().UTC(), id)
	if err != nil {
		return domain.StoreError("set favorite", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set favorite %s: %w", id, domain.ErrLookupMiss)
	}
	r.tracker.MarkChanged("matches")
	return nil
}

// SetDeleted flips the soft-delete flag on a small id set through the
// tracked write path. Bulk callers go through SetDeletedChunk instead.
func (r *MatchRepository) SetDeleted(ctx context.Context, ids []string, value bool) error {
	if err := r.applyFlagChunk(ctx, "is_deleted", ids, value); err != nil {
		return err
	}
	r.tracker.MarkChanged("matches")
	return nil
}

// SetDeletedChunk applies the soft-delete flag to one chunk in its own
// transaction. It deliberately does not mark the tracker: bulk mutations
// signal subscriptions once, explicitly, after the whole batch.
func (r *MatchRepository) SetDeletedChunk(ctx context.Context, ids []string, value bool) error {
	return r.applyFlagChunk(ctx, "is_deleted", ids, value)
}

// SetFavoriteChunk is the bulk counterpart of SetFavorite.
func (r *MatchRepository) SetFavoriteChunk(ctx context.Context, ids []string, value bool) error {
	return r.applyFlagChunk(ctx, "is_favorite", ids, value)
}

func (r *MatchRepository) applyFlagChunk(ctx context.Context, column string, ids []string, value bool) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, value, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("update "+column, err)
	}
	defer tx.Rollback()

	// column is one of two compile-time literals, never caller input.
	stmt := "UPDATE matches SET " + column + " = ?, updated_at = ? WHERE id IN (" + query.Placeholders(len(ids)) + ")"
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return domain.StoreError("update "+column, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.StoreError("update "+column, err)
	}
	return nil
}

// ListCompiled executes a compiled filter query and returns the base rows.
func (r *MatchRepository) ListCompiled(ctx context.Context, c *query.Compiled) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx, c.SQL, c.Args...)
	if err != nil {
		return nil, domain.StoreError("list matches", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, domain.StoreError("scan match", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list matches", err)
	}
	return matches, nil
}

// EarliestMatchTime reports the oldest known match time for an account, or
// nil when nothing has been synced yet. The sync collaborator uses it to
// pick its backfill starting point.
func (r *MatchRepository) EarliestMatchTime(ctx context.Context, accountID string) (*time.Time, error) {
	var earliest sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT MIN(played_time) FROM matches WHERE account_id = ?", accountID,
	).Scan(&earliest)
	if err != nil {
		return nil, domain.StoreError("earliest match time", err)
	}
	if !earliest.Valid {
		return nil, nil
	}
	t := time.Unix(earliest.Int64, 0).UTC()
	return &t, nil
}

// LatestForKind returns the group id and play time of the newest match of
// one kind, or nils when the account has none. Used for session grouping.
func (r *MatchRepository) LatestForKind(ctx context.Context, accountID string, kind domain.MatchKind) (*int64, *time.Time, error) {
	var groupID, playedUnix int64
	err := r.db.QueryRowContext(ctx,
		`SELECT group_id, played_time FROM matches
		 WHERE account_id = ? AND kind = ?
		 ORDER BY played_time DESC, id DESC LIMIT 1`,
		accountID, string(kind),
	).Scan(&groupID, &playedUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, domain.StoreError("latest match for kind", err)
	}
	t := time.Unix(playedUnix, 0).UTC()
	return &groupID, &t, nil
}

// MaxGroupID returns the highest assigned session group id for an account,
// zero when none exists.
func (r *MatchRepository) MaxGroupID(ctx context.Context, accountID string) (int64, error) {
	var maxID int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(group_id), 0) FROM matches WHERE account_id = ?", accountID,
	).Scan(&maxID)
	if err != nil {
		return 0, domain.StoreError("max group id", err)
	}
	return maxID, nil
}

// TeamsFor returns the per-team results for one match in team order.
func (r *MatchRepository) TeamsFor(ctx context.Context, matchID string) ([]domain.Team, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, team_order, color, paint_ratio, score, is_my_team
		 FROM match_teams WHERE match_id = ? ORDER BY team_order`, matchID)
	if err != nil {
		return nil, domain.StoreError("teams for match", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		var ratio sql.NullFloat64
		var score sql.NullInt64
		if err := rows.Scan(&t.MatchID, &t.TeamOrder, &t.Color, &ratio, &score, &t.IsMyTeam); err != nil {
			return nil, domain.StoreError("scan team", err)
		}
		if ratio.Valid {
			t.PaintRatio = &ratio.Float64
		}
		if score.Valid {
			t.Score = &score.Int64
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// PlayersFor returns the participant rows for one match in seat order.
func (r *MatchRepository) PlayersFor(ctx context.Context, matchID string) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, team_order, player_order, player_id, name, name_id,
		        weapon_id, kill, death, assist, special, paint, is_myself
		 FROM match_players WHERE match_id = ? ORDER BY team_order, player_order`, matchID)
	if err != nil {
		return nil, domain.StoreError("players for match", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.MatchID, &p.TeamOrder, &p.PlayerOrder, &p.PlayerID,
			&p.Name, &p.NameID, &p.WeaponID, &p.Kill, &p.Death, &p.Assist,
			&p.Special, &p.Paint, &p.IsMyself); err != nil {
			return nil, domain.StoreError("scan player", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// WavesFor returns the co-op wave results for one match.
func (r *MatchRepository) WavesFor(ctx context.Context, matchID string) ([]domain.CoopWave, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, wave_number, event_id, water_level, deliver_count, quota
		 FROM coop_waves WHERE match_id = ? ORDER BY wave_number`, matchID)
	if err != nil {
		return nil, domain.StoreError("waves for match", err)
	}
	defer rows.Close()

	var waves []domain.CoopWave
	for rows.Next() {
		var w domain.CoopWave
		var event sql.NullInt64
		if err := rows.Scan(&w.MatchID, &w.WaveNumber, &event, &w.WaterLevel,
			&w.DeliverCount, &w.Quota); err != nil {
			return nil, domain.StoreError("scan wave", err)
		}
		if event.Valid {
			w.EventID = &event.Int64
		}
		waves = append(waves, w)
	}
	return waves, rows.Err()
}

// GroupStats computes the aggregation row for one (account, group), or nil
// when the group has no visible matches.
func (r *MatchRepository) GroupStats(ctx context.Context, accountID string, groupID int64) (*domain.GroupStats, error) {
	row := r.db.QueryRowContext(ctx, groupStatsSelect+
		" AND group_id = ? GROUP BY group_id", accountID, groupID)

	s, err := scanGroupStats(row, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("group stats", err)
	}
	return s, nil
}

// ListGroupStats returns aggregation rows for the latest groups, newest
// first, following the standard pagination contract.
func (r *MatchRepository) ListGroupStats(ctx context.Context, accountID string, page domain.Page) ([]domain.GroupStats, error) {
	rows, err := r.db.QueryContext(ctx, groupStatsSelect+
		" GROUP BY group_id ORDER BY group_id DESC LIMIT ? OFFSET ?",
		accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, domain.StoreError("list group stats", err)
	}
	defer rows.Close()

	var stats []domain.GroupStats
	for rows.Next() {
		s, err := scanGroupStats(rows, accountID)
		if err != nil {
			return nil, domain.StoreError("scan group stats", err)
		}
		stats = append(stats, *s)
	}
	return stats, rows.Err()
}

const groupStatsSelect = `SELECT group_id, COUNT(*),
	MIN(played_time), MAX(played_time),
	SUM(CASE WHEN judgement = 'WIN' THEN 1 ELSE 0 END),
	SUM(CASE WHEN judgement = 'LOSE' THEN 1 ELSE 0 END),
	SUM(CASE WHEN judgement = 'DRAW' THEN 1 ELSE 0 END),
	SUM(CASE WHEN judgement = 'DISCONNECT' THEN 1 ELSE 0 END),
	SUM(kill), SUM(death), SUM(assist), SUM(special),
	AVG(duration_seconds),
	MAX(battle_power), SUM(fest_contribution), MAX(coop_grade_point)
	FROM matches WHERE account_id = ? AND is_deleted = 0`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroupStats(row rowScanner, accountID string) (*domain.GroupStats, error) {
	var s domain.GroupStats
	var startUnix, endUnix int64
	var battlePower sql.NullFloat64
	var festContribution, gradePoint sql.NullInt64
	err := row.Scan(&s.GroupID, &s.MatchCount,
		&startUnix, &endUnix,
		&s.WinCount, &s.LoseCount, &s.DrawCount, &s.DisconnectCount,
		&s.Kill, &s.Death, &s.Assist, &s.Special,
		&s.AvgDurationSeconds,
		&battlePower, &festContribution, &gradePoint)
	if err != nil {
		return nil, err
	}
	s.AccountID = accountID
	s.StartTime = time.Unix(startUnix, 0).UTC()
	s.EndTime = time.Unix(endUnix, 0).UTC()
	if battlePower.Valid {
		s.MaxBattlePower = &battlePower.Float64
	}
	if festContribution.Valid {
		s.FestContribution = &festContribution.Int64
	}
	if gradePoint.Valid {
		s.MaxGradePoint = &gradePoint.Int64
	}
	return &s, nil
}

func scanMatch(row rowScanner) (*domain.Match, error) {
	var m domain.Match
	var kind, judgement string
	var playedUnix int64
	var udemae, festDragon sql.NullString
	var battlePower, coopHazard sql.NullFloat64
	var festContribution, gradeID, gradePoint, waveCleared sql.NullInt64

	err := row.Scan(&m.ID, &m.AccountID, &kind, &m.Mode, &m.Rule, &m.StageID, &m.WeaponID,
		&playedUnix, &m.DurationSeconds, &judgement, &m.Knockout,
		&m.Kill, &m.Death, &m.Assist, &m.Special, &m.Paint,
		&udemae, &battlePower, &festContribution, &festDragon,
		&gradeID, &gradePoint, &waveCleared, &coopHazard,
		&m.GroupID, &m.IsDeleted, &m.IsFavorite, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.Kind = domain.MatchKind(kind)
	m.Judgement = domain.Judgement(judgement)
	m.PlayedTime = time.Unix(playedUnix, 0).UTC()
	if udemae.Valid {
		m.Udemae = &udemae.String
	}
	if battlePower.Valid {
		m.BattlePower = &battlePower.Float64
	}
	if festContribution.Valid {
		m.FestContribution = &festContribution.Int64
	}
	if festDragon.Valid {
		m.FestDragon = &festDragon.String
	}
	if gradeID.Valid {
		m.CoopGradeID = &gradeID.Int64
	}
	if gradePoint.Valid {
		m.CoopGradePoint = &gradePoint.Int64
	}
	if waveCleared.Valid {
		m.CoopWaveCleared = &waveCleared.Int64
	}
	if coopHazard.Valid {
		m.CoopHazard = &coopHazard.Float64
	}
	return &m, nil
}

func isDuplicateKey(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
