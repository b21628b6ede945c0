package recorder

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/elo"
	"github.com/mauv0809/padel-elo/internal/metrics"
	"github.com/mauv0809/padel-elo/internal/pubsub"
)

// errDryRun aborts the transaction of a dry run after the preview is built.
var errDryRun = errors.New("dry run")

// New creates a new Recorder. pubsub may be nil, in which case results are
// sent to the notifier directly after commit.
func New(store Store, notifier Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Recorder {
	return &Recorder{
		store:    store,
		pubsub:   pubsub,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

// RecordMatch validates req, computes the new ratings of the four players and
// writes the match, its sets, the ratings and the rating history in a single
// transaction. With dryRun the transaction is rolled back and the computed
// result is returned as a preview.
//
// Rejected submissions return a *ValidationError. Failures of the write
// return a *PersistenceError.
func (r *Recorder) RecordMatch(ctx context.Context, req Request, dryRun bool) (*club.MatchResult, error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveRecordDuration(time.Since(start).Seconds())
	}()

	sets, err := validate(req)
	if err != nil {
		r.metrics.IncMatchesRejected()
		log.Warn("Rejected match submission", "createdBy", req.CreatedBy, "error", err)
		return nil, err
	}

	playedAt := r.now().UTC()
	if req.PlayedAt != nil {
		playedAt = req.PlayedAt.UTC()
	}
	match := &club.Match{
		CreatedByID: req.CreatedBy,
		PlayedAt:    playedAt,
		Sets:        sets,
	}

	var result *club.MatchResult
	err = r.store.InTx(ctx, func(tx club.Tx) error {
		var txErr error
		result, txErr = r.record(ctx, tx, match)
		if txErr != nil {
			return txErr
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})

	var validationErr *ValidationError
	switch {
	case err == nil:
	case errors.Is(err, errDryRun):
		result.DryRun = true
		log.Info("Dry run: match not recorded", "createdBy", req.CreatedBy, "sets", len(sets))
		r.notify(ctx, result)
		return result, nil
	case errors.As(err, &validationErr):
		r.metrics.IncMatchesRejected()
		log.Warn("Rejected match submission", "createdBy", req.CreatedBy, "error", err)
		return nil, err
	default:
		r.metrics.IncMatchRecordFailed()
		log.Error("Failed to record match", "createdBy", req.CreatedBy, "error", err)
		return nil, &PersistenceError{Err: err}
	}

	r.metrics.IncMatchesRecorded()
	for _, c := range result.Changes {
		r.metrics.ObserveRatingDelta(float64(c.Delta))
	}
	log.Info("Recorded match", "matchID", result.MatchID, "createdBy", result.CreatedByID, "sets", len(result.Sets), "winner", result.WinningTeam())

	r.publish(ctx, result)
	return result, nil
}

// record runs the write protocol inside tx. Ratings are read (and created at
// the default when missing) before anything else is written.
func (r *Recorder) record(ctx context.Context, tx club.Tx, match *club.Match) (*club.MatchResult, error) {
	first := match.Sets[0]
	order := []string{first.TeamAPlayer1ID, first.TeamAPlayer2ID, first.TeamBPlayer1ID, first.TeamBPlayer2ID}

	ids := append([]string{}, order...)
	if !slices.Contains(ids, match.CreatedByID) {
		ids = append(ids, match.CreatedByID)
	}
	players, err := tx.GetPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			return nil, invalid("unknown player %q", id)
		}
	}

	before := make([]int, len(order))
	for i, id := range order {
		rating, err := tx.EnsureRating(ctx, id, elo.DefaultRating)
		if err != nil {
			return nil, err
		}
		before[i] = rating
	}

	outcome := elo.Calculate(elo.Ratings{A1: before[0], A2: before[1], B1: before[2], B2: before[3]}, club.SetScores(match.Sets))
	after := []int{outcome.NewA1, outcome.NewA2, outcome.NewB1, outcome.NewB2}
	deltas := []int{outcome.DeltaA1, outcome.DeltaA2, outcome.DeltaB1, outcome.DeltaB2}

	if err := tx.InsertMatch(ctx, match); err != nil {
		return nil, err
	}
	if err := tx.InsertSets(ctx, match.ID, match.Sets); err != nil {
		return nil, err
	}

	changes := make([]club.RatingChange, len(order))
	history := make([]club.RatingHistoryEntry, len(order))
	for i, id := range order {
		if err := tx.UpdateRating(ctx, id, after[i]); err != nil {
			return nil, err
		}
		team := club.TeamA
		if i >= 2 {
			team = club.TeamB
		}
		changes[i] = club.RatingChange{
			PlayerID:   id,
			PlayerName: names[id],
			Team:       team,
			Before:     before[i],
			After:      after[i],
			Delta:      deltas[i],
		}
		history[i] = club.RatingHistoryEntry{
			PlayerID:    id,
			MatchID:     match.ID,
			Delta:       deltas[i],
			RatingAfter: after[i],
			CreatedAt:   match.CreatedAt,
		}
	}
	if err := tx.AppendRatingHistory(ctx, history); err != nil {
		return nil, err
	}

	return &club.MatchResult{
		MatchID:       match.ID,
		CreatedByID:   match.CreatedByID,
		CreatedByName: names[match.CreatedByID],
		PlayedAt:      match.PlayedAt,
		Sets:          match.Sets,
		Changes:       changes,
	}, nil
}

// publish hands a committed result to Pub/Sub, falling back to the notifier
// when no client is configured or publishing fails. Errors are only logged:
// the match is already committed.
func (r *Recorder) publish(ctx context.Context, result *club.MatchResult) {
	if r.pubsub != nil {
		err := r.pubsub.SendMessage(ctx, pubsub.EventMatchRecorded, result)
		if err == nil {
			return
		}
		log.Error("Failed to publish match result, notifying directly", "matchID", result.MatchID, "error", err)
	}
	r.notify(ctx, result)
}

func (r *Recorder) notify(ctx context.Context, result *club.MatchResult) {
	if err := r.NotifyResult(ctx, result); err != nil {
		log.Error("Failed to send match result notification", "matchID", result.MatchID, "error", err)
	}
}

// NotifyResult sends a recorded match to the notifier. A result flagged as a
// dry run is only logged by the notifier.
func (r *Recorder) NotifyResult(ctx context.Context, result *club.MatchResult) error {
	if r.notifier == nil {
		return nil
	}
	_, err := r.notifier.SendMatchResult(result, result.DryRun)
	return err
}
