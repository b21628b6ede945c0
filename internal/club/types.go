package club

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mauv0809/padel-elo/internal/elo"
)

// ErrPlayerNotFound is returned when a lookup matches no player.
var ErrPlayerNotFound = errors.New("player not found")

// store handles all database operations for the club.
type store struct {
	db *sql.DB
}

// tx is the transaction-scoped view of the store handed to InTx callbacks.
type tx struct {
	tx *sql.Tx
}

// Player roles.
const (
	RolePlayer = "PLAYER"
	RoleAdmin  = "ADMIN"
)

// Player is a club member. Rating is nil until the player's first recorded match.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"isActive"`
	Rating *int   `json:"rating"`
}

// Set is one set of a match. Index orders the sets within their match.
type Set struct {
	Index          int    `json:"setIndex"`
	TeamAPlayer1ID string `json:"teamAPlayer1Id"`
	TeamAPlayer2ID string `json:"teamAPlayer2Id"`
	TeamBPlayer1ID string `json:"teamBPlayer1Id"`
	TeamBPlayer2ID string `json:"teamBPlayer2Id"`
	ScoreA         int    `json:"scoreA"`
	ScoreB         int    `json:"scoreB"`
}

// Match is a played doubles match with its sets in index order.
type Match struct {
	ID            string    `json:"id"`
	CreatedByID   string    `json:"createdById"`
	CreatedByName string    `json:"createdByName"`
	PlayedAt      time.Time `json:"playedAt"`
	CreatedAt     time.Time `json:"createdAt"`
	Sets          []Set     `json:"sets"`
}

// RatingHistoryEntry records the rating change one match applied to one player.
type RatingHistoryEntry struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"playerId"`
	MatchID     string    `json:"matchId"`
	Delta       int       `json:"delta"`
	RatingAfter int       `json:"ratingAfter"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Team identifiers used in RatingChange.
const (
	TeamA = "A"
	TeamB = "B"
)

// RatingChange is the before/after rating of one player in a recorded match.
type RatingChange struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Team       string `json:"team"`
	Before     int    `json:"before"`
	After      int    `json:"after"`
	Delta      int    `json:"delta"`
}

// MatchResult describes a recorded (or previewed) match and the rating changes it caused.
type MatchResult struct {
	MatchID       string         `json:"matchId"`
	CreatedByID   string         `json:"createdById"`
	CreatedByName string         `json:"createdByName"`
	PlayedAt      time.Time      `json:"playedAt"`
	Sets          []Set          `json:"sets"`
	Changes       []RatingChange `json:"changes"`
	DryRun        bool           `json:"dryRun,omitempty"`
}

// WinningTeam returns TeamA, TeamB or "" when the match was level on sets.
func (m *MatchResult) WinningTeam() string {
	a, b := elo.SetsWon(SetScores(m.Sets))
	switch {
	case a > b:
		return TeamA
	case b > a:
		return TeamB
	default:
		return ""
	}
}

// SetScores returns the games of each set as rating engine input.
func SetScores(sets []Set) []elo.SetScore {
	scores := make([]elo.SetScore, len(sets))
	for i, s := range sets {
		scores[i] = elo.SetScore{A: s.ScoreA, B: s.ScoreB}
	}
	return scores
}
