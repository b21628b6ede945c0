package handlers

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/notifier"
)

// PostLeaderboardHandler posts the current leaderboard to the Slack channel.
// It is meant to be triggered by a scheduler.
func PostLeaderboardHandler(store club.ClubStore, notifier notifier.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.GetPlayersSortedByRating(r.Context())
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}
		if err := notifier.SendLeaderboard(players, IsDryRunFromContext(r)); err != nil {
			http.Error(w, "Failed to post leaderboard", http.StatusInternalServerError)
			log.Error("Failed to post leaderboard", "error", err)
			return
		}
		log.Info("Posted leaderboard", "players", len(players))
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Leaderboard posted with %d players", len(players))
	}
}
