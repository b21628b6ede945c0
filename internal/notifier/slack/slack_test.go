package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/metrics"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func intPtr(i int) *int { return &i }

func sampleResult() *club.MatchResult {
	return &club.MatchResult{
		MatchID:       "m1",
		CreatedByID:   "p1",
		CreatedByName: "Alice",
		PlayedAt:      time.Date(2025, 7, 9, 18, 0, 0, 0, time.UTC),
		Sets: []club.Set{
			{Index: 1, ScoreA: 6, ScoreB: 4},
			{Index: 2, ScoreA: 6, ScoreB: 3},
		},
		Changes: []club.RatingChange{
			{PlayerID: "p1", PlayerName: "Alice", Team: club.TeamA, Before: 1000, After: 1016, Delta: 16},
			{PlayerID: "p2", PlayerName: "Bob", Team: club.TeamA, Before: 1000, After: 1016, Delta: 16},
			{PlayerID: "p3", PlayerName: "Carol", Team: club.TeamB, Before: 1000, After: 984, Delta: -16},
			{PlayerID: "p4", PlayerName: "Dave", Team: club.TeamB, Before: 1000, After: 984, Delta: -16},
		},
	}
}

func testNotifier(api slackClient, m metrics.Metrics) *Notifier {
	n := NewNotifierWithAPI(api, "C123", m)
	n.location = time.UTC
	return n
}

func TestSendMessage_DryRun(t *testing.T) {
	m := metrics.NewMock()
	called := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			called = true
			return "", "", nil
		},
	}
	notifier := testNotifier(api, m)

	_, ts, err := notifier.sendMessage(slackapi.NewBlockMessage(), true)
	require.NoError(t, err)
	assert.Equal(t, "dry-run-thread-ts", ts)
	assert.False(t, called)
	assert.Equal(t, 0, m.SlackNotifSent())
}

func TestSendMessage_NoToken(t *testing.T) {
	m := metrics.NewMock()
	notifier := NewNotifier("", "C123", m)

	_, _, err := notifier.sendMessage(slackapi.NewBlockMessage(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, m.SlackNotifSent())
	assert.Equal(t, 0, m.SlackNotifFailed())
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	m := metrics.NewMock()
	notifier := testNotifier(api, m)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, ts, err := notifier.sendMessage(message, false)

	require.NoError(t, err)
	assert.Equal(t, "ts123", ts)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, m.SlackNotifSent())
	assert.Equal(t, 0, m.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	m := metrics.NewMock()
	notifier := testNotifier(api, m)

	_, _, err := notifier.sendMessage(slackapi.NewBlockMessage(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, m.SlackNotifSent())
	assert.Equal(t, 1, m.SlackNotifFailed())
}

func TestSendMatchResult_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}
	notifier := testNotifier(api, metrics.NewMock())

	ts, err := notifier.SendMatchResult(sampleResult(), false)
	require.NoError(t, err)
	assert.Equal(t, "ts123", ts)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called via SendMatchResult")
}

func TestSendLeaderboard_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}
	notifier := testNotifier(api, metrics.NewMock())

	err := notifier.SendLeaderboard([]club.Player{{Name: "Alice", Rating: intPtr(1016)}}, false)
	require.NoError(t, err)
	assert.True(t, postMessageCalled)
}

func TestFormatMatchResult(t *testing.T) {
	notifier := testNotifier(nil, metrics.NewMock())
	msg := notifier.formatMatchResult(sampleResult())
	require.Len(t, msg.Blocks.BlockSet, 5)

	header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "🎾 Match recorded! 🎾", header.Text.Text)

	details, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "Played Wed, Jul 9 at 18:00\nSets: 6-4, 6-3", details.Text.Text)

	result, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "Result: Alice & Bob won! 🏆", result.Text.Text)

	ratings, ok := msg.Blocks.BlockSet[3].(*slackapi.SectionBlock)
	require.True(t, ok)
	require.Len(t, ratings.Fields, 4)
	assert.Equal(t, "Alice\n1000 → 1016 (+16)", ratings.Fields[0].Text)
	assert.Equal(t, "Carol\n1000 → 984 (-16)", ratings.Fields[2].Text)

	_, ok = msg.Blocks.BlockSet[4].(*slackapi.ContextBlock)
	assert.True(t, ok)
}

func TestFormatMatchResult_Level(t *testing.T) {
	res := sampleResult()
	res.Sets = []club.Set{{Index: 1, ScoreA: 6, ScoreB: 4}, {Index: 2, ScoreA: 3, ScoreB: 6}}
	res.CreatedByName = ""

	notifier := testNotifier(nil, metrics.NewMock())
	msg := notifier.formatMatchResult(res)
	require.Len(t, msg.Blocks.BlockSet, 4)

	result := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
	assert.Equal(t, "Result: Level on sets 🤝", result.Text.Text)
}

func TestFormatLeaderboard(t *testing.T) {
	notifier := testNotifier(nil, metrics.NewMock())
	players := []club.Player{
		{Name: "Alice", Rating: intPtr(1032)},
		{Name: "Bob", Rating: intPtr(1016)},
		{Name: "Carol", Rating: intPtr(984)},
		{Name: "Dave", Rating: intPtr(968)},
	}
	msg := notifier.formatLeaderboard(players)
	require.Len(t, msg.Blocks.BlockSet, 5)

	first := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	assert.Equal(t, "1. 🥇 Alice\n> *Rating*: 1032", first.Text.Text)
	fourth := msg.Blocks.BlockSet[4].(*slackapi.SectionBlock)
	assert.Equal(t, "4.  Dave\n> *Rating*: 968", fourth.Text.Text)
}

func TestFormatLeaderboard_Empty(t *testing.T) {
	notifier := testNotifier(nil, metrics.NewMock())
	msg := notifier.formatLeaderboard(nil)
	require.Len(t, msg.Blocks.BlockSet, 2)
	section := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	assert.Contains(t, section.Text.Text, "No ratings yet")
}

func TestFormatPlayerRating(t *testing.T) {
	notifier := testNotifier(nil, metrics.NewMock())
	player := &club.Player{Name: "Alice", Rating: intPtr(1016)}
	history := []club.RatingHistoryEntry{
		{Delta: 16, RatingAfter: 1016, CreatedAt: time.Date(2025, 7, 9, 18, 0, 0, 0, time.UTC)},
	}

	resp, err := notifier.FormatPlayerRatingResponse(player, history)
	require.NoError(t, err)
	msg, ok := resp.(slackapi.Message)
	require.True(t, ok)
	require.Len(t, msg.Blocks.BlockSet, 2)
	section := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	assert.Equal(t, "> *Rating*: 1016\n> Jul 9: +16 → 1016", section.Text.Text)
}

func TestFormatPlayerRating_Unrated(t *testing.T) {
	notifier := testNotifier(nil, metrics.NewMock())
	msg := notifier.formatPlayerRating(&club.Player{Name: "Eve"}, nil)
	section := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	assert.Equal(t, "Eve has not played a rated match yet.", section.Text.Text)
}

func TestFormatPlayerNotFound(t *testing.T) {
	notifier := testNotifier(nil, metrics.NewMock())
	resp, err := notifier.FormatPlayerNotFoundResponse("zed")
	require.NoError(t, err)
	msg := resp.(slackapi.Message)
	section := msg.Blocks.BlockSet[0].(*slackapi.SectionBlock)
	assert.Contains(t, section.Text.Text, "*zed*")
}
