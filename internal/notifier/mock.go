package notifier

import (
	"sync"

	"github.com/mauv0809/padel-elo/internal/club"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Call records
	SendMatchResultCalls []struct {
		Result *club.MatchResult
		DryRun bool
	}
	SendLeaderboardCalls [][]club.Player

	// Spies
	SendMatchResultFunc              func(result *club.MatchResult, dryRun bool) (string, error)
	FormatLeaderboardResponseFunc    func(players []club.Player) (any, error)
	FormatPlayerRatingResponseFunc   func(player *club.Player, history []club.RatingHistoryEntry) (any, error)
	FormatPlayerNotFoundResponseFunc func(query string) (any, error)

	// Call records for format functions
	LastLeaderboardResponse    any
	LastPlayerRatingResponse   any
	LastPlayerNotFoundResponse any
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchResultCalls = nil
	m.SendLeaderboardCalls = nil
	m.LastLeaderboardResponse = nil
	m.LastPlayerRatingResponse = nil
	m.LastPlayerNotFoundResponse = nil
}

func (m *Mock) SendMatchResult(result *club.MatchResult, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchResultCalls = append(m.SendMatchResultCalls, struct {
		Result *club.MatchResult
		DryRun bool
	}{result, dryRun})
	if m.SendMatchResultFunc != nil {
		return m.SendMatchResultFunc(result, dryRun)
	}
	return "mock-ts", nil
}

func (m *Mock) SendLeaderboard(players []club.Player, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, players)
	return nil
}

func (m *Mock) FormatLeaderboardResponse(players []club.Player) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		resp, err := m.FormatLeaderboardResponseFunc(players)
		m.LastLeaderboardResponse = resp
		return resp, err
	}
	return nil, nil
}

func (m *Mock) FormatPlayerRatingResponse(player *club.Player, history []club.RatingHistoryEntry) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerRatingResponseFunc != nil {
		resp, err := m.FormatPlayerRatingResponseFunc(player, history)
		m.LastPlayerRatingResponse = resp
		return resp, err
	}
	return nil, nil
}

func (m *Mock) FormatPlayerNotFoundResponse(query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerNotFoundResponseFunc != nil {
		resp, err := m.FormatPlayerNotFoundResponseFunc(query)
		m.LastPlayerNotFoundResponse = resp
		return resp, err
	}
	return nil, nil
}
