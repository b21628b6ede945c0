package club

import "context"

// ClubStore defines the interface for interacting with the club's data.
type ClubStore interface {
	UpsertPlayers(ctx context.Context, players []Player) error
	SetPlayerActive(ctx context.Context, playerID string, active bool) error
	GetActivePlayers(ctx context.Context) ([]Player, error)
	GetPlayersSortedByRating(ctx context.Context) ([]Player, error)
	GetPlayerByName(ctx context.Context, name string) (*Player, error)
	GetRecentMatches(ctx context.Context, limit int) ([]Match, error)
	GetRatingHistory(ctx context.Context, playerID string, limit int) ([]RatingHistoryEntry, error)
	// InTx runs fn inside one database transaction. The transaction is
	// committed if fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes and reads available inside InTx.
type Tx interface {
	GetPlayers(ctx context.Context, playerIDs []string) ([]Player, error)
	// EnsureRating returns the player's rating, creating it with initial if absent.
	EnsureRating(ctx context.Context, playerID string, initial int) (int, error)
	InsertMatch(ctx context.Context, match *Match) error
	InsertSets(ctx context.Context, matchID string, sets []Set) error
	UpdateRating(ctx context.Context, playerID string, rating int) error
	AppendRatingHistory(ctx context.Context, entries []RatingHistoryEntry) error
}
