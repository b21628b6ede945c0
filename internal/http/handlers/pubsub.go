package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/pubsub"
)

// ResultNotifier sends recorded match results on.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, result *club.MatchResult) error
}

// MatchRecordedHandler receives match-recorded events pushed by Pub/Sub.
// A non-2xx response makes Pub/Sub redeliver the message.
func MatchRecordedHandler(notifier ResultNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received match recorded message", "body", string(bodyBytes))

		var result club.MatchResult
		if err := pubsub.DecodePush(bodyBytes, &result); err != nil {
			log.Error("Failed to decode match recorded message", "error", err)
			http.Error(w, "Invalid message", http.StatusBadRequest)
			return
		}
		if IsDryRunFromContext(r) {
			result.DryRun = true
		}

		if err := notifier.NotifyResult(r.Context(), &result); err != nil {
			log.Error("Failed to notify result", "matchID", result.MatchID, "error", err)
			http.Error(w, "Failed to notify result", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}
