package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/notifier"
	"github.com/slack-go/slack"
)

const ratingHistoryInCommand = 5

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg any) {
	slackMsg, ok := msg.(slack.Message)
	if !ok {
		http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
		log.Error("Failed to cast message to slack.Message")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(slackMsg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func LeaderboardCommandHandler(store club.ClubStore, notifier notifier.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.GetPlayersSortedByRating(r.Context())
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}

		msg, err := notifier.FormatLeaderboardResponse(players)
		if err != nil {
			http.Error(w, "Failed to format leaderboard", http.StatusInternalServerError)
			log.Error("Failed to format leaderboard", "error", err)
			return
		}
		respondWithSlackMsg(w, msg)
	}
}

func RatingCommandHandler(store club.ClubStore, notifier notifier.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}

		playerName := strings.TrimSpace(r.FormValue("text"))
		if playerName == "" {
			http.Error(w, "Player name is required.", http.StatusBadRequest)
			return
		}

		log.Info("Received rating command", "player", playerName)
		var msg any
		player, err := store.GetPlayerByName(r.Context(), playerName)
		switch {
		case errors.Is(err, club.ErrPlayerNotFound):
			log.Warn("Could not find player", "player", playerName)
			msg, err = notifier.FormatPlayerNotFoundResponse(playerName)
		case err != nil:
			http.Error(w, "Failed to get player", http.StatusInternalServerError)
			log.Error("Failed to get player from store", "player", playerName, "error", err)
			return
		default:
			var history []club.RatingHistoryEntry
			history, err = store.GetRatingHistory(r.Context(), player.ID, ratingHistoryInCommand)
			if err != nil {
				http.Error(w, "Failed to get rating history", http.StatusInternalServerError)
				log.Error("Failed to get rating history from store", "playerID", player.ID, "error", err)
				return
			}
			msg, err = notifier.FormatPlayerRatingResponse(player, history)
		}

		if err != nil {
			http.Error(w, "Failed to format player rating", http.StatusInternalServerError)
			log.Error("Failed to format player rating", "error", err)
			return
		}
		respondWithSlackMsg(w, msg)
	}
}
