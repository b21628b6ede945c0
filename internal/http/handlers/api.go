package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/recorder"
)

const maxRecordBodyBytes = 1 << 20

// MatchRecorder records match submissions.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, req recorder.Request, dryRun bool) (*club.MatchResult, error)
}

type recordMatchResponse struct {
	OK      bool                `json:"ok"`
	MatchID string              `json:"matchId,omitempty"`
	DryRun  bool                `json:"dryRun,omitempty"`
	Changes []club.RatingChange `json:"changes,omitempty"`
}

func ListPlayersHandler(store club.ClubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.GetActivePlayers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get players")
			log.Error("Failed to get players from store", "error", err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func LeaderboardHandler(store club.ClubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.GetPlayersSortedByRating(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get leaderboard")
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func PlayerHistoryHandler(store club.ClubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.PathValue("id")
		limit, ok := limitFromQuery(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		history, err := store.GetRatingHistory(r.Context(), playerID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get rating history")
			log.Error("Failed to get rating history from store", "playerID", playerID, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func ListMatchesHandler(store club.ClubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitFromQuery(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		matches, err := store.GetRecentMatches(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get matches")
			log.Error("Failed to get matches from store", "error", err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

// RecordMatchHandler accepts a match submission. Validation problems are
// reported with their message; write failures only with a generic one.
func RecordMatchHandler(rec MatchRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recorder.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBodyBytes)).Decode(&req); err != nil {
			log.Warn("Failed to decode match submission", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}

		dryRun := IsDryRunFromContext(r)
		result, err := rec.RecordMatch(r.Context(), req, dryRun)
		var validationErr *recorder.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Msg)
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "Failed to record match")
			return
		}

		if result.DryRun {
			writeJSON(w, http.StatusOK, recordMatchResponse{OK: true, DryRun: true, Changes: result.Changes})
			return
		}
		writeJSON(w, http.StatusCreated, recordMatchResponse{OK: true, MatchID: result.MatchID})
	}
}
