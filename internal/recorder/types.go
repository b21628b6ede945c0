package recorder

import (
	"time"

	"github.com/mauv0809/padel-elo/internal/metrics"
	"github.com/mauv0809/padel-elo/internal/pubsub"
)

// Recorder validates match submissions and persists them together with the
// rating changes they cause.
type Recorder struct {
	store    Store
	pubsub   pubsub.PubSubClient
	notifier Notifier
	metrics  metrics.Metrics
	now      func() time.Time
}

// Request is a match submission.
type Request struct {
	CreatedBy string     `json:"createdById"`
	PlayedAt  *time.Time `json:"playedAt,omitempty"`
	Sets      []SetInput `json:"sets"`
}

// SetInput is one submitted set. SetIndex is optional; when every set omits
// it the sets are numbered from 1 in submission order.
type SetInput struct {
	SetIndex       *int   `json:"setIndex,omitempty"`
	TeamAPlayer1ID string `json:"teamAPlayer1Id"`
	TeamAPlayer2ID string `json:"teamAPlayer2Id"`
	TeamBPlayer1ID string `json:"teamBPlayer1Id"`
	TeamBPlayer2ID string `json:"teamBPlayer2Id"`
	ScoreA         int    `json:"scoreA"`
	ScoreB         int    `json:"scoreB"`
}
