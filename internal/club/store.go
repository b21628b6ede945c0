package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// New creates a new ClubStore.
func New(db *sql.DB) ClubStore {
	return &store{
		db: db,
	}
}

const playerColumns = `p.id, p.name, p.email, p.role, p.is_active, r.rating`

// UpsertPlayers inserts new players or updates the profile of existing ones,
// matched by ID or else by email. Each player's ID is set to the ID of the
// stored row, so a player matched on email gets the existing ID back.
func (s *store) UpsertPlayers(ctx context.Context, players []Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name, email, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			is_active = excluded.is_active
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			is_active = excluded.is_active
		RETURNING id;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare player upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i := range players {
		p := &players[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Role == "" {
			p.Role = RolePlayer
		}
		if err := stmt.QueryRowContext(ctx, p.ID, p.Name, p.Email, p.Role, p.Active, now).Scan(&p.ID); err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
		}
		log.Debug("Upserted player", "playerID", p.ID, "name", p.Name)
	}

	return tx.Commit()
}

// SetPlayerActive marks a player as active or inactive.
func (s *store) SetPlayerActive(ctx context.Context, playerID string, active bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE players SET is_active = ? WHERE id = ?", active, playerID)
	if err != nil {
		return fmt.Errorf("failed to update player %s: %w", playerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// GetActivePlayers returns the active players ordered by name.
func (s *store) GetActivePlayers(ctx context.Context) ([]Player, error) {
	return s.queryPlayers(ctx, `
		SELECT `+playerColumns+`
		FROM players p
		LEFT JOIN ratings r ON r.player_id = p.id
		WHERE p.is_active = 1
		ORDER BY p.name ASC
	`)
}

// GetPlayersSortedByRating returns the active players with the highest rating
// first. Players without a rating yet are listed last, by name.
func (s *store) GetPlayersSortedByRating(ctx context.Context) ([]Player, error) {
	return s.queryPlayers(ctx, `
		SELECT `+playerColumns+`
		FROM players p
		LEFT JOIN ratings r ON r.player_id = p.id
		WHERE p.is_active = 1
		ORDER BY r.rating IS NULL, r.rating DESC, p.name ASC
	`)
}

// GetPlayerByName finds a player by a case-insensitive, partial name match
// (e.g., "morten" will match "Morten Voss").
func (s *store) GetPlayerByName(ctx context.Context, name string) (*Player, error) {
	pattern := "%" + name + "%"
	row := s.db.QueryRowContext(ctx, `
		SELECT `+playerColumns+`
		FROM players p
		LEFT JOIN ratings r ON r.player_id = p.id
		WHERE p.name LIKE ? COLLATE NOCASE
		ORDER BY p.is_active DESC, p.name ASC
		LIMIT 1
	`, pattern)

	p, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("No player found matching pattern", "pattern", pattern)
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return p, nil
}

// GetRecentMatches returns the newest matches first, each with its sets in index order.
func (s *store) GetRecentMatches(ctx context.Context, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.created_by_id, COALESCE(p.name, ''), m.played_at, m.created_at
		FROM matches m
		LEFT JOIN players p ON p.id = m.created_by_id
		ORDER BY m.played_at DESC, m.created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}

	var matches []Match
	index := make(map[string]int)
	for rows.Next() {
		var m Match
		var playedAt, createdAt int64
		if err := rows.Scan(&m.ID, &m.CreatedByID, &m.CreatedByName, &playedAt, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		m.PlayedAt = time.Unix(playedAt, 0).UTC()
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		m.Sets = []Set{}
		index[m.ID] = len(matches)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(matches) == 0 {
		return []Match{}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	setRows, err := s.db.QueryContext(ctx, `
		SELECT match_id, set_index, team_a_player1_id, team_a_player2_id, team_b_player1_id, team_b_player2_id, score_a, score_b
		FROM match_sets
		WHERE match_id IN (`+placeholders(len(ids))+`)
		ORDER BY match_id, set_index ASC
	`, ToAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var matchID string
		var set Set
		if err := setRows.Scan(&matchID, &set.Index, &set.TeamAPlayer1ID, &set.TeamAPlayer2ID, &set.TeamBPlayer1ID, &set.TeamBPlayer2ID, &set.ScoreA, &set.ScoreB); err != nil {
			return nil, fmt.Errorf("failed to scan set row: %w", err)
		}
		i := index[matchID]
		matches[i].Sets = append(matches[i].Sets, set)
	}
	return matches, setRows.Err()
}

// GetRatingHistory returns a player's rating changes, most recent first.
func (s *store) GetRatingHistory(ctx context.Context, playerID string, limit int) ([]RatingHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, match_id, delta, rating_after, created_at
		FROM rating_history
		WHERE player_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	entries := []RatingHistoryEntry{}
	for rows.Next() {
		var e RatingHistoryEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.MatchID, &e.Delta, &e.RatingAfter, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating history row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InTx runs fn inside a single transaction.
func (s *store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *store) queryPlayers(ctx context.Context, query string, args ...any) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("Failed to query players", "error", err)
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func scanPlayers(rows *sql.Rows) ([]Player, error) {
	players := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// scanPlayer scans a row selected with playerColumns.
func scanPlayer(scanner interface{ Scan(...any) error }) (*Player, error) {
	var p Player
	var rating sql.NullInt64
	if err := scanner.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.Active, &rating); err != nil {
		return nil, err
	}
	if rating.Valid {
		r := int(rating.Int64)
		p.Rating = &r
	}
	return &p, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func ToAnySlice[T any](s []T) []any {
	a := make([]any, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}
