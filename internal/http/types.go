package http

import (
	"context"
	"net/http"

	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/config"
	"github.com/mauv0809/padel-elo/internal/metrics"
	"github.com/mauv0809/padel-elo/internal/notifier"
	"github.com/mauv0809/padel-elo/internal/recorder"
	"google.golang.org/api/idtoken"
)

type Server struct {
	Store          club.ClubStore
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Notifier       notifier.Notifier
	Recorder       *recorder.Recorder
	Router         *http.ServeMux

	validateIDToken tokenValidator
}

// tokenValidator checks a Google-signed OIDC token issued for audience.
type tokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
