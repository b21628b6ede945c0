package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/config"
	"github.com/mauv0809/padel-elo/internal/database"
	"github.com/mauv0809/padel-elo/internal/metrics"
	"github.com/mauv0809/padel-elo/internal/notifier"
	"github.com/mauv0809/padel-elo/internal/pubsub"
	"github.com/mauv0809/padel-elo/internal/recorder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

const testSlackSigningSecret = "test-signing-secret"

// setupTestServer initializes a new server with an in-memory database and mock notifier.
func setupTestServer(t *testing.T, notifier notifier.Notifier, slackSigningSecret string) (*Server, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)

	clubStore := club.New(db)
	cfg := config.Config{Slack: config.SlackConfig{SigningSecret: slackSigningSecret}}

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)
	rec := recorder.New(clubStore, notifier, metricsSvc, nil)
	server := NewServer(clubStore, metricsSvc, metricsHandler, cfg, notifier, rec)

	return server, dbTeardown
}

func seedPlayers(t *testing.T, store club.ClubStore) {
	t.Helper()
	require.NoError(t, store.UpsertPlayers(context.Background(), []club.Player{
		{ID: "a1", Name: "Anna Holm", Email: "anna@example.com", Active: true},
		{ID: "a2", Name: "Bo Berg", Email: "bo@example.com", Active: true},
		{ID: "b1", Name: "Carl Dahl", Email: "carl@example.com", Active: true},
		{ID: "b2", Name: "Dina Ek", Email: "dina@example.com", Active: true},
	}))
}

const straightWinBody = `{
	"createdById": "a1",
	"playedAt": "2025-07-09T18:00:00Z",
	"sets": [
		{"teamAPlayer1Id": "a1", "teamAPlayer2Id": "a2", "teamBPlayer1Id": "b1", "teamBPlayer2Id": "b2", "scoreA": 6, "scoreB": 4},
		{"teamAPlayer1Id": "a1", "teamAPlayer2Id": "a2", "teamBPlayer1Id": "b1", "teamBPlayer2Id": "b2", "scoreA": 6, "scoreB": 3}
	]
}`

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	return rr
}

// createSlackCommandRequest creates an http.Request suitable for testing Slack slash commands,
// including the necessary signature and timestamp headers for verification.
func createSlackCommandRequest(t *testing.T, targetURL string, form url.Values, signingSecret string) *http.Request {
	t.Helper()

	body := strings.NewReader(form.Encode())
	req, err := http.NewRequest("POST", targetURL, body)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	timestamp := time.Now().Unix()
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(timestamp, 10))

	// Read the request body to generate the signature, then put it back for the handler.
	bodyBytes, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	baseString := fmt.Sprintf("v0:%d:%s", timestamp, string(bodyBytes))
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte(baseString))
	signature := hex.EncodeToString(h.Sum(nil))

	req.Header.Set("X-Slack-Signature", "v0="+signature)
	return req
}

func TestHealthCheckHandler(t *testing.T) {
	server, teardown := setupTestServer(t, notifier.NewMock(), "")
	defer teardown()

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	rr := serve(server, req)

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "OK!", rr.Body.String(), "handler returned unexpected body")
}

func TestListPlayersHandler(t *testing.T) {
	server, teardown := setupTestServer(t, notifier.NewMock(), "")
	defer teardown()
	seedPlayers(t, server.Store)
	require.NoError(t, server.Store.SetPlayerActive(context.Background(), "b2", false))

	req := httptest.NewRequest("GET", "/api/players", nil)
	rr := serve(server, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var players []club.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &players))
	require.Len(t, players, 3, "inactive players are not listed")
	assert.Equal(t, "Anna Holm", players[0].Name)
	assert.Nil(t, players[0].Rating)
	assert.Contains(t, rr.Body.String(), `"rating":null`)
}

func TestRecordMatchHandler(t *testing.T) {
	t.Run("records a match and updates ratings", func(t *testing.T) {
		mockNotifier := notifier.NewMock()
		server, teardown := setupTestServer(t, mockNotifier, "")
		defer teardown()
		seedPlayers(t, server.Store)

		rr := serve(server, httptest.NewRequest("POST", "/api/matches", strings.NewReader(straightWinBody)))

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var resp struct {
			OK      bool   `json:"ok"`
			MatchID string `json:"matchId"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.NotEmpty(t, resp.MatchID)
		require.Len(t, mockNotifier.SendMatchResultCalls, 1)
		assert.Equal(t, resp.MatchID, mockNotifier.SendMatchResultCalls[0].Result.MatchID)

		// Leaderboard reflects the new ratings.
		rr = serve(server, httptest.NewRequest("GET", "/api/leaderboard", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var leaderboard []club.Player
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &leaderboard))
		require.Len(t, leaderboard, 4)
		assert.Equal(t, 1016, *leaderboard[0].Rating)
		assert.Equal(t, 984, *leaderboard[3].Rating)

		// The match is listed with its sets and creator.
		rr = serve(server, httptest.NewRequest("GET", "/api/matches?limit=5", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var matches []club.Match
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &matches))
		require.Len(t, matches, 1)
		assert.Equal(t, resp.MatchID, matches[0].ID)
		assert.Equal(t, "Anna Holm", matches[0].CreatedByName)
		assert.Len(t, matches[0].Sets, 2)
		assert.Equal(t, time.Date(2025, 7, 9, 18, 0, 0, 0, time.UTC), matches[0].PlayedAt.UTC())

		// And the rating history of a loser shows the change.
		rr = serve(server, httptest.NewRequest("GET", "/api/players/b1/history", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var history []club.RatingHistoryEntry
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
		require.Len(t, history, 1)
		assert.Equal(t, -16, history[0].Delta)
		assert.Equal(t, 984, history[0].RatingAfter)
	})

	t.Run("validation error returns its message", func(t *testing.T) {
		server, teardown := setupTestServer(t, notifier.NewMock(), "")
		defer teardown()
		seedPlayers(t, server.Store)

		body := `{"createdById": "a1", "sets": [
			{"teamAPlayer1Id": "a1", "teamAPlayer2Id": "a2", "teamBPlayer1Id": "b1", "teamBPlayer2Id": "b2", "scoreA": 6, "scoreB": 4},
			{"teamAPlayer1Id": "b2", "teamAPlayer2Id": "a2", "teamBPlayer1Id": "b1", "teamBPlayer2Id": "a1", "scoreA": 6, "scoreB": 3}
		]}`
		rr := serve(server, httptest.NewRequest("POST", "/api/matches", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "set 2 has different players than set 1"}`, rr.Body.String())

		rr = serve(server, httptest.NewRequest("GET", "/api/matches", nil))
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("empty set list is rejected", func(t *testing.T) {
		server, teardown := setupTestServer(t, notifier.NewMock(), "")
		defer teardown()

		rr := serve(server, httptest.NewRequest("POST", "/api/matches", strings.NewReader(`{"createdById": "a1", "sets": []}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "at least one set is required"}`, rr.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		server, teardown := setupTestServer(t, notifier.NewMock(), "")
		defer teardown()

		rr := serve(server, httptest.NewRequest("POST", "/api/matches", strings.NewReader(`{"sets": [`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "Invalid JSON"}`, rr.Body.String())
	})

	t.Run("persistence failure returns a generic error", func(t *testing.T) {
		server, teardown := setupTestServer(t, notifier.NewMock(), "")
		defer teardown()

		failing := club.NewMock()
		failing.InTxFunc = func(fn func(tx club.Tx) error) error {
			return errors.New("constraint failed: secret table detail")
		}
		server.Recorder = recorder.New(failing, notifier.NewMock(), metrics.NewMock(), nil)
		server.Router = http.NewServeMux()
		server.routes()

		rr := serve(server, httptest.NewRequest("POST", "/api/matches", strings.NewReader(straightWinBody)))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error": "Failed to record match"}`, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), "secret")
	})

	t.Run("dry run previews without writing", func(t *testing.T) {
		mockNotifier := notifier.NewMock()
		server, teardown := setupTestServer(t, mockNotifier, "")
		defer teardown()
		seedPlayers(t, server.Store)

		rr := serve(server, httptest.NewRequest("POST", "/api/matches?dry_run=true", strings.NewReader(straightWinBody)))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			OK      bool                `json:"ok"`
			DryRun  bool                `json:"dryRun"`
			Changes []club.RatingChange `json:"changes"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.DryRun)
		require.Len(t, resp.Changes, 4)
		assert.Equal(t, 1016, resp.Changes[0].After)
		require.Len(t, mockNotifier.SendMatchResultCalls, 1)
		assert.True(t, mockNotifier.SendMatchResultCalls[0].DryRun)

		rr = serve(server, httptest.NewRequest("GET", "/api/leaderboard", nil))
		assert.NotContains(t, rr.Body.String(), "1016")
	})
}

func TestListMatchesHandler_InvalidLimit(t *testing.T) {
	server, teardown := setupTestServer(t, notifier.NewMock(), "")
	defer teardown()

	for _, limit := range []string{"abc", "0", "-3"} {
		rr := serve(server, httptest.NewRequest("GET", "/api/matches?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", limit)
	}
}

func TestMatchRecordedHandler(t *testing.T) {
	t.Run("sends the pushed result to the notifier", func(t *testing.T) {
		mockNotifier := notifier.NewMock()
		server, teardown := setupTestServer(t, mockNotifier, "")
		defer teardown()

		result := club.MatchResult{
			MatchID:  "m1",
			PlayedAt: time.Date(2025, 7, 9, 18, 0, 0, 0, time.UTC),
			Sets:     []club.Set{{Index: 1, ScoreA: 6, ScoreB: 4}},
			Changes:  []club.RatingChange{{PlayerID: "a1", PlayerName: "Anna Holm", Team: club.TeamA, Before: 1000, After: 1016, Delta: 16}},
		}
		data, err := pubsub.Encode(result)
		require.NoError(t, err)
		envelope := fmt.Sprintf(`{"subscription": "sub", "message": {"messageId": "1", "data": %q}}`, base64.StdEncoding.EncodeToString(data))

		rr := serve(server, httptest.NewRequest("POST", "/pubsub/match-recorded", strings.NewReader(envelope)))

		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, mockNotifier.SendMatchResultCalls, 1)
		got := mockNotifier.SendMatchResultCalls[0]
		assert.Equal(t, "m1", got.Result.MatchID)
		assert.Equal(t, 1016, got.Result.Changes[0].After)
		assert.False(t, got.DryRun)
	})

	t.Run("rejects an undecodable message", func(t *testing.T) {
		mockNotifier := notifier.NewMock()
		server, teardown := setupTestServer(t, mockNotifier, "")
		defer teardown()

		rr := serve(server, httptest.NewRequest("POST", "/pubsub/match-recorded", strings.NewReader(`{"message": {"data": "***"}}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, mockNotifier.SendMatchResultCalls)
	})

	t.Run("notifier failure asks for redelivery", func(t *testing.T) {
		mockNotifier := notifier.NewMock()
		mockNotifier.SendMatchResultFunc = func(result *club.MatchResult, dryRun bool) (string, error) {
			return "", errors.New("slack down")
		}
		server, teardown := setupTestServer(t, mockNotifier, "")
		defer teardown()

		data, err := pubsub.Encode(club.MatchResult{MatchID: "m1"})
		require.NoError(t, err)
		envelope := fmt.Sprintf(`{"message": {"data": %q}}`, base64.StdEncoding.EncodeToString(data))

		rr := serve(server, httptest.NewRequest("POST", "/pubsub/match-recorded", strings.NewReader(envelope)))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestMatchRecordedHandler_PushAuth(t *testing.T) {
	const (
		audience     = "https://elo.example.com/pubsub/match-recorded"
		pushAccount  = "push@padel.iam.gserviceaccount.com"
		validToken   = "signed-by-google"
		foreignToken = "signed-for-someone-else"
	)

	mockNotifier := notifier.NewMock()
	server, teardown := setupTestServer(t, mockNotifier, "")
	defer teardown()
	server.Cfg.PubSub = config.PubSubConfig{PushAudience: audience, PushServiceAccount: pushAccount}
	server.validateIDToken = func(_ context.Context, token, aud string) (*idtoken.Payload, error) {
		if aud != audience {
			return nil, errors.New("unexpected audience")
		}
		switch token {
		case validToken:
			return &idtoken.Payload{Audience: aud, Claims: map[string]interface{}{"email": pushAccount, "email_verified": true}}, nil
		case foreignToken:
			return &idtoken.Payload{Audience: aud, Claims: map[string]interface{}{"email": "intruder@example.com", "email_verified": true}}, nil
		default:
			return nil, errors.New("invalid token")
		}
	}
	server.Router = http.NewServeMux()
	server.routes()

	data, err := pubsub.Encode(club.MatchResult{MatchID: "m1", Sets: []club.Set{{Index: 1, ScoreA: 6, ScoreB: 4}}})
	require.NoError(t, err)
	envelope := fmt.Sprintf(`{"message": {"data": %q}}`, base64.StdEncoding.EncodeToString(data))

	push := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/pubsub/match-recorded", strings.NewReader(envelope))
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		return serve(server, req)
	}

	tests := map[string]struct {
		authorization string
		wantCode      int
	}{
		"missing token":         {authorization: "", wantCode: http.StatusUnauthorized},
		"not a bearer token":    {authorization: "Basic " + validToken, wantCode: http.StatusUnauthorized},
		"invalid token":         {authorization: "Bearer forged", wantCode: http.StatusUnauthorized},
		"wrong service account": {authorization: "Bearer " + foreignToken, wantCode: http.StatusUnauthorized},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rr := push(tc.authorization)
			assert.Equal(t, tc.wantCode, rr.Code)
		})
	}
	assert.Empty(t, mockNotifier.SendMatchResultCalls, "rejected pushes must not reach Slack")

	t.Run("valid token", func(t *testing.T) {
		rr := push("Bearer " + validToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		require.Len(t, mockNotifier.SendMatchResultCalls, 1)
		assert.Equal(t, "m1", mockNotifier.SendMatchResultCalls[0].Result.MatchID)
	})
}

func TestPostLeaderboardHandler(t *testing.T) {
	mockNotifier := notifier.NewMock()
	server, teardown := setupTestServer(t, mockNotifier, "")
	defer teardown()
	seedPlayers(t, server.Store)

	rr := serve(server, httptest.NewRequest("POST", "/leaderboard/post", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, mockNotifier.SendLeaderboardCalls, 1)
	assert.Len(t, mockNotifier.SendLeaderboardCalls[0], 4)
	assert.Nil(t, mockNotifier.SendLeaderboardCalls[0][0].Rating, "players without matches are listed unrated")
}

func TestLeaderboardCommandHandler(t *testing.T) {
	mockNotifier := notifier.NewMock()
	var formatted []club.Player
	mockNotifier.FormatLeaderboardResponseFunc = func(players []club.Player) (any, error) {
		formatted = players
		return slack.NewBlockMessage(), nil
	}
	server, teardown := setupTestServer(t, mockNotifier, testSlackSigningSecret)
	defer teardown()
	seedPlayers(t, server.Store)

	t.Run("signed request", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/leaderboard", url.Values{"command": {"/leaderboard"}}, testSlackSigningSecret)
		rr := serve(server, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Len(t, formatted, 4)
	})

	t.Run("wrong signature is rejected", func(t *testing.T) {
		formatted = nil
		req := createSlackCommandRequest(t, "/slack/command/leaderboard", url.Values{"command": {"/leaderboard"}}, "another-secret")
		rr := serve(server, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, formatted)
	})

	t.Run("unsigned request is rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/slack/command/leaderboard", strings.NewReader("command=%2Fleaderboard"))
		rr := serve(server, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRatingCommandHandler(t *testing.T) {
	mockNotifier := notifier.NewMock()
	mockNotifier.FormatPlayerRatingResponseFunc = func(player *club.Player, history []club.RatingHistoryEntry) (any, error) {
		return slack.NewBlockMessage(), nil
	}
	mockNotifier.FormatPlayerNotFoundResponseFunc = func(query string) (any, error) {
		return slack.NewBlockMessage(), nil
	}
	server, teardown := setupTestServer(t, mockNotifier, testSlackSigningSecret)
	defer teardown()
	seedPlayers(t, server.Store)

	rr := serve(server, httptest.NewRequest("POST", "/api/matches", strings.NewReader(straightWinBody)))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("known player", func(t *testing.T) {
		mockNotifier.Reset()
		req := createSlackCommandRequest(t, "/slack/command/rating", url.Values{"text": {"carl"}}, testSlackSigningSecret)
		rr := serve(server, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.NotNil(t, mockNotifier.LastPlayerRatingResponse)
		assert.Nil(t, mockNotifier.LastPlayerNotFoundResponse)
	})

	t.Run("unknown player", func(t *testing.T) {
		mockNotifier.Reset()
		req := createSlackCommandRequest(t, "/slack/command/rating", url.Values{"text": {"Nobody"}}, testSlackSigningSecret)
		rr := serve(server, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, mockNotifier.LastPlayerNotFoundResponse)
		assert.Nil(t, mockNotifier.LastPlayerRatingResponse)
	})

	t.Run("missing name", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/rating", url.Values{"text": {"  "}}, testSlackSigningSecret)
		rr := serve(server, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
