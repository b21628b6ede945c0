package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncMatchesRecorded()
	IncMatchesRejected()
	IncMatchRecordFailed()
	ObserveRecordDuration(duration float64)
	ObserveRatingDelta(delta float64)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}
