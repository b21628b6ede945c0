package club

import (
	"context"
	"sync"
)

// MockStore is a mock implementation of the ClubStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Tx is handed to InTx callbacks unless InTxFunc is set.
	Tx *MockTx

	// Spies for method calls
	UpsertPlayersFunc            func(players []Player) error
	SetPlayerActiveFunc          func(playerID string, active bool) error
	GetActivePlayersFunc         func() ([]Player, error)
	GetPlayersSortedByRatingFunc func() ([]Player, error)
	GetPlayerByNameFunc          func(name string) (*Player, error)
	GetRecentMatchesFunc         func(limit int) ([]Match, error)
	GetRatingHistoryFunc         func(playerID string, limit int) ([]RatingHistoryEntry, error)
	InTxFunc                     func(fn func(tx Tx) error) error

	// Call records
	UpsertPlayersCalls    [][]Player
	GetPlayerByNameCalls  []string
	GetRecentMatchesCalls []int
	GetRatingHistoryCalls []struct {
		PlayerID string
		Limit    int
	}
	InTxCalls int
}

// NewMock creates a new mock instance backed by an empty MockTx.
func NewMock() *MockStore {
	return &MockStore{Tx: NewMockTx()}
}

// Reset clears all call records.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertPlayersCalls = nil
	m.GetPlayerByNameCalls = nil
	m.GetRecentMatchesCalls = nil
	m.GetRatingHistoryCalls = nil
	m.InTxCalls = 0
}

func (m *MockStore) UpsertPlayers(ctx context.Context, players []Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertPlayersCalls = append(m.UpsertPlayersCalls, players)
	if m.UpsertPlayersFunc != nil {
		return m.UpsertPlayersFunc(players)
	}
	return nil
}

func (m *MockStore) SetPlayerActive(ctx context.Context, playerID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetPlayerActiveFunc != nil {
		return m.SetPlayerActiveFunc(playerID, active)
	}
	return nil
}

func (m *MockStore) GetActivePlayers(ctx context.Context) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetActivePlayersFunc != nil {
		return m.GetActivePlayersFunc()
	}
	return []Player{}, nil
}

func (m *MockStore) GetPlayersSortedByRating(ctx context.Context) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetPlayersSortedByRatingFunc != nil {
		return m.GetPlayersSortedByRatingFunc()
	}
	return []Player{}, nil
}

func (m *MockStore) GetPlayerByName(ctx context.Context, name string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPlayerByNameCalls = append(m.GetPlayerByNameCalls, name)
	if m.GetPlayerByNameFunc != nil {
		return m.GetPlayerByNameFunc(name)
	}
	return nil, ErrPlayerNotFound
}

func (m *MockStore) GetRecentMatches(ctx context.Context, limit int) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetRecentMatchesCalls = append(m.GetRecentMatchesCalls, limit)
	if m.GetRecentMatchesFunc != nil {
		return m.GetRecentMatchesFunc(limit)
	}
	return []Match{}, nil
}

func (m *MockStore) GetRatingHistory(ctx context.Context, playerID string, limit int) ([]RatingHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetRatingHistoryCalls = append(m.GetRatingHistoryCalls, struct {
		PlayerID string
		Limit    int
	}{playerID, limit})
	if m.GetRatingHistoryFunc != nil {
		return m.GetRatingHistoryFunc(playerID, limit)
	}
	return []RatingHistoryEntry{}, nil
}

// InTx runs fn against the mock transaction. It does not roll anything back;
// tests inspect the MockTx call records instead.
func (m *MockStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	m.InTxCalls++
	inTxFunc := m.InTxFunc
	mockTx := m.Tx
	m.mu.Unlock()

	if inTxFunc != nil {
		return inTxFunc(fn)
	}
	return fn(mockTx)
}

// MockTx is a mock implementation of Tx. By default it serves players from
// Players and keeps ratings in Ratings.
type MockTx struct {
	mu sync.Mutex

	Players map[string]Player
	Ratings map[string]int

	// Spies for method calls
	GetPlayersFunc          func(playerIDs []string) ([]Player, error)
	EnsureRatingFunc        func(playerID string, initial int) (int, error)
	InsertMatchFunc         func(match *Match) error
	InsertSetsFunc          func(matchID string, sets []Set) error
	UpdateRatingFunc        func(playerID string, rating int) error
	AppendRatingHistoryFunc func(entries []RatingHistoryEntry) error

	// Call records
	EnsureRatingCalls        []string
	InsertMatchCalls         []Match
	InsertSetsCalls          [][]Set
	UpdateRatingCalls        map[string]int
	AppendRatingHistoryCalls [][]RatingHistoryEntry
}

// NewMockTx creates an empty MockTx.
func NewMockTx() *MockTx {
	return &MockTx{
		Players:           make(map[string]Player),
		Ratings:           make(map[string]int),
		UpdateRatingCalls: make(map[string]int),
	}
}

// AddPlayers registers players so GetPlayers can find them.
func (m *MockTx) AddPlayers(players ...Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range players {
		m.Players[p.ID] = p
	}
}

func (m *MockTx) GetPlayers(ctx context.Context, playerIDs []string) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetPlayersFunc != nil {
		return m.GetPlayersFunc(playerIDs)
	}
	players := []Player{}
	for _, id := range playerIDs {
		if p, ok := m.Players[id]; ok {
			players = append(players, p)
		}
	}
	return players, nil
}

func (m *MockTx) EnsureRating(ctx context.Context, playerID string, initial int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureRatingCalls = append(m.EnsureRatingCalls, playerID)
	if m.EnsureRatingFunc != nil {
		return m.EnsureRatingFunc(playerID, initial)
	}
	if r, ok := m.Ratings[playerID]; ok {
		return r, nil
	}
	m.Ratings[playerID] = initial
	return initial, nil
}

func (m *MockTx) InsertMatch(ctx context.Context, match *Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match.ID == "" {
		match.ID = "mock-match"
	}
	m.InsertMatchCalls = append(m.InsertMatchCalls, *match)
	if m.InsertMatchFunc != nil {
		return m.InsertMatchFunc(match)
	}
	return nil
}

func (m *MockTx) InsertSets(ctx context.Context, matchID string, sets []Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertSetsCalls = append(m.InsertSetsCalls, sets)
	if m.InsertSetsFunc != nil {
		return m.InsertSetsFunc(matchID, sets)
	}
	return nil
}

func (m *MockTx) UpdateRating(ctx context.Context, playerID string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateRatingCalls[playerID] = rating
	if m.UpdateRatingFunc != nil {
		return m.UpdateRatingFunc(playerID, rating)
	}
	m.Ratings[playerID] = rating
	return nil
}

func (m *MockTx) AppendRatingHistory(ctx context.Context, entries []RatingHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendRatingHistoryCalls = append(m.AppendRatingHistoryCalls, entries)
	if m.AppendRatingHistoryFunc != nil {
		return m.AppendRatingHistoryFunc(entries)
	}
	return nil
}
