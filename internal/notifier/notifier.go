package notifier

import "github.com/mauv0809/padel-elo/internal/club"

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For recorded matches
	SendMatchResult(result *club.MatchResult, dryRun bool) (string, error)
	SendLeaderboard(players []club.Player, dryRun bool) error

	// For formatting responses for slash commands
	FormatLeaderboardResponse(players []club.Player) (any, error)
	FormatPlayerRatingResponse(player *club.Player, history []club.RatingHistoryEntry) (any, error)
	FormatPlayerNotFoundResponse(query string) (any, error)
}
