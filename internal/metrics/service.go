package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padel_matches_recorded_total",
			Help: "The total number of matches recorded.",
		}),
		MatchesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padel_matches_rejected_total",
			Help: "The total number of match submissions rejected by validation.",
		}),
		MatchRecordFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padel_match_record_failures_total",
			Help: "The total number of match submissions that failed to persist.",
		}),
		RecordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "padel_match_record_duration_seconds",
			Help:    "The duration of recording a match, including the database transaction.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RatingDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "padel_rating_delta",
			Help:    "The rating change applied to each player of a recorded match.",
			Buckets: []float64{-32, -24, -16, -8, -4, 0, 4, 8, 16, 24, 32},
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padel_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padel_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "padel_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.MatchesRecorded,
		s.MatchesRejected,
		s.MatchRecordFailed,
		s.RecordDuration,
		s.RatingDelta,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncMatchesRecorded() {
	s.MatchesRecorded.Inc()
}

func (s *Service) IncMatchesRejected() {
	s.MatchesRejected.Inc()
}

func (s *Service) IncMatchRecordFailed() {
	s.MatchRecordFailed.Inc()
}

func (s *Service) ObserveRecordDuration(duration float64) {
	s.RecordDuration.Observe(duration)
}

func (s *Service) ObserveRatingDelta(delta float64) {
	s.RatingDelta.Observe(delta)
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
