package http

import (
	"net/http"

	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/config"
	"github.com/mauv0809/padel-elo/internal/http/handlers"
	"github.com/mauv0809/padel-elo/internal/metrics"
	"github.com/mauv0809/padel-elo/internal/notifier"
	"github.com/mauv0809/padel-elo/internal/recorder"
	"google.golang.org/api/idtoken"
)

func NewServer(store club.ClubStore, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, notifier notifier.Notifier, recorder *recorder.Recorder) *Server {
	server := &Server{
		Store:          store,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Notifier:       notifier,
		Recorder:       recorder,
		Router:         http.NewServeMux(),

		validateIDToken: idtoken.Validate,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	slackAuth := slackVerifyMiddleware(s.Cfg.Slack.SigningSecret)
	pushAuth := pubsubPushMiddleware(s.Cfg.PubSub.PushAudience, s.Cfg.PubSub.PushServiceAccount, s.validateIDToken)

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(handlers.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("GET /api/players", Chain(handlers.ListPlayersHandler(s.Store), paramsMiddleware))
	s.Router.Handle("GET /api/leaderboard", Chain(handlers.LeaderboardHandler(s.Store), paramsMiddleware))
	s.Router.Handle("GET /api/players/{id}/history", Chain(handlers.PlayerHistoryHandler(s.Store), paramsMiddleware))
	s.Router.Handle("GET /api/matches", Chain(handlers.ListMatchesHandler(s.Store), paramsMiddleware))
	s.Router.Handle("POST /api/matches", Chain(handlers.RecordMatchHandler(s.Recorder), paramsMiddleware))

	s.Router.Handle("POST /pubsub/match-recorded", Chain(handlers.MatchRecordedHandler(s.Recorder), paramsMiddleware, pushAuth))
	s.Router.Handle("POST /leaderboard/post", Chain(handlers.PostLeaderboardHandler(s.Store, s.Notifier), paramsMiddleware))

	s.Router.Handle("POST /slack/command/leaderboard", Chain(handlers.LeaderboardCommandHandler(s.Store, s.Notifier), paramsMiddleware, slackAuth))
	s.Router.Handle("POST /slack/command/rating", Chain(handlers.RatingCommandHandler(s.Store, s.Notifier), paramsMiddleware, slackAuth))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
