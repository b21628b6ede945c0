package club

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// GetPlayers returns the players with the given IDs. Unknown IDs are skipped.
func (t *tx) GetPlayers(ctx context.Context, playerIDs []string) ([]Player, error) {
	if len(playerIDs) == 0 {
		return []Player{}, nil
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+playerColumns+`
		FROM players p
		LEFT JOIN ratings r ON r.player_id = p.id
		WHERE p.id IN (`+placeholders(len(playerIDs))+`)
	`, ToAnySlice(playerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()
	return scanPlayers(rows)
}

// EnsureRating creates the player's rating row if it does not exist and
// returns the current value. The primary key on ratings.player_id makes the
// insert idempotent, so concurrent first matches cannot create two rows.
func (t *tx) EnsureRating(ctx context.Context, playerID string, initial int) (int, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ratings (player_id, rating, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(player_id) DO NOTHING;
	`, playerID, initial, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to initialize rating for %s: %w", playerID, err)
	}

	var rating int
	if err := t.tx.QueryRowContext(ctx, "SELECT rating FROM ratings WHERE player_id = ?", playerID).Scan(&rating); err != nil {
		return 0, fmt.Errorf("failed to read rating for %s: %w", playerID, err)
	}
	return rating, nil
}

// InsertMatch creates the match row. An empty ID is replaced with a new one
// and a zero CreatedAt with the current time.
func (t *tx) InsertMatch(ctx context.Context, match *Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO matches (id, created_by_id, played_at, created_at) VALUES (?, ?, ?, ?)
	`, match.ID, match.CreatedByID, match.PlayedAt.Unix(), match.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// InsertSets creates the set rows of a match.
func (t *tx) InsertSets(ctx context.Context, matchID string, sets []Set) error {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO match_sets (match_id, set_index, team_a_player1_id, team_a_player2_id, team_b_player1_id, team_b_player2_id, score_a, score_b)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare set insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sets {
		_, err := stmt.ExecContext(ctx, matchID, s.Index, s.TeamAPlayer1ID, s.TeamAPlayer2ID, s.TeamBPlayer1ID, s.TeamBPlayer2ID, s.ScoreA, s.ScoreB)
		if err != nil {
			return fmt.Errorf("failed to insert set %d: %w", s.Index, err)
		}
	}
	return nil
}

// UpdateRating overwrites the player's current rating.
func (t *tx) UpdateRating(ctx context.Context, playerID string, rating int) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE ratings SET rating = ?, updated_at = ? WHERE player_id = ?", rating, time.Now().Unix(), playerID)
	if err != nil {
		return fmt.Errorf("failed to update rating for %s: %w", playerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("failed to update rating for %s: no rating row", playerID)
	}
	log.Debug("Updated rating", "playerID", playerID, "rating", rating)
	return nil
}

// AppendRatingHistory adds entries to the rating ledger.
func (t *tx) AppendRatingHistory(ctx context.Context, entries []RatingHistoryEntry) error {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO rating_history (id, player_id, match_id, delta, rating_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rating history insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.PlayerID, e.MatchID, e.Delta, e.RatingAfter, e.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("failed to append rating history for %s: %w", e.PlayerID, err)
		}
	}
	return nil
}
