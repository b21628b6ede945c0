package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu               sync.Mutex
	matchesRecorded  int
	matchesRejected  int
	matchRecordFails int
	recordDurations  []float64
	ratingDeltas     []float64
	slackNotifSent   int
	slackNotifFailed int
	startupTime      float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		recordDurations: make([]float64, 0),
		ratingDeltas:    make([]float64, 0),
	}
}

func (m *Mock) IncMatchesRecorded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesRecorded++
}

func (m *Mock) IncMatchesRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesRejected++
}

func (m *Mock) IncMatchRecordFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchRecordFails++
}

func (m *Mock) ObserveRecordDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordDurations = append(m.recordDurations, duration)
}

func (m *Mock) ObserveRatingDelta(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratingDeltas = append(m.ratingDeltas, delta)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesRecorded returns the number of times IncMatchesRecorded was called.
func (m *Mock) MatchesRecorded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesRecorded
}

// MatchesRejected returns the number of times IncMatchesRejected was called.
func (m *Mock) MatchesRejected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesRejected
}

// MatchRecordFailed returns the number of times IncMatchRecordFailed was called.
func (m *Mock) MatchRecordFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchRecordFails
}

// RatingDeltas returns every observed rating delta.
func (m *Mock) RatingDeltas() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.ratingDeltas...)
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
