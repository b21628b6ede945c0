package recorder

import (
	"context"

	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/notifier"
)

// Store defines the database operations required by the recorder.
type Store interface {
	InTx(ctx context.Context, fn func(tx club.Tx) error) error
}

// Notifier defines the notification operations required by the recorder.
type Notifier interface {
	notifier.Notifier
}
