package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/metrics"
	"github.com/mauv0809/padel-elo/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	location  *time.Location
}

// NewNotifier creates a new Notifier. Without a token the notifier only logs
// the messages it would have sent.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	var api slackClient
	if token != "" {
		api = slack.New(token)
	} else {
		log.Warn("No Slack token configured, notifications will only be logged")
	}
	return NewNotifierWithAPI(api, channelID, metrics)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		loc = time.UTC
	}
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
		location:  loc,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun || s.api == nil {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendMatchResult(result *club.MatchResult, dryRun bool) (string, error) {
	msg := s.formatMatchResult(result)
	_, timestamp, err := s.sendMessage(msg, dryRun)
	return timestamp, err
}

func (s *Notifier) SendLeaderboard(players []club.Player, dryRun bool) error {
	msg := s.formatLeaderboard(players)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(players []club.Player) (any, error) {
	return s.formatLeaderboard(players), nil
}

// FormatPlayerRatingResponse formats a player's rating and recent changes for a slash command response.
func (s *Notifier) FormatPlayerRatingResponse(player *club.Player, history []club.RatingHistoryEntry) (any, error) {
	return s.formatPlayerRating(player, history), nil
}

// FormatPlayerNotFoundResponse formats a message for when a player is not found.
func (s *Notifier) FormatPlayerNotFoundResponse(query string) (any, error) {
	return s.formatPlayerNotFound(query), nil
}

// formatMatchResult creates the Slack message for a recorded match using Block Kit.
func (s *Notifier) formatMatchResult(result *club.MatchResult) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎾 Match recorded! 🎾", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	timeStr := result.PlayedAt.In(s.location).Format("Mon, Jan 2 at 15:04")
	scores := make([]string, len(result.Sets))
	for i, set := range result.Sets {
		scores[i] = fmt.Sprintf("%d-%d", set.ScoreA, set.ScoreB)
	}
	detailsText := fmt.Sprintf("Played %s\nSets: %s", timeStr, strings.Join(scores, ", "))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	teamNames := map[string][]string{}
	for _, c := range result.Changes {
		teamNames[c.Team] = append(teamNames[c.Team], c.PlayerName)
	}
	var resultText string
	switch winner := result.WinningTeam(); winner {
	case "":
		resultText = "Result: Level on sets 🤝"
	default:
		resultText = fmt.Sprintf("Result: %s won! 🏆", strings.Join(teamNames[winner], " & "))
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", resultText, true, false), nil, nil))

	if len(result.Changes) > 0 {
		var ratingFields []*slack.TextBlockObject
		for _, c := range result.Changes {
			text := fmt.Sprintf("%s\n%d → %d (%+d)", c.PlayerName, c.Before, c.After, c.Delta)
			ratingFields = append(ratingFields, slack.NewTextBlockObject("plain_text", text, true, false))
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Rating changes:", true, false), ratingFields, nil))
	}

	if result.CreatedByName != "" {
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", "Reported by "+result.CreatedByName, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the rating leaderboard.
func (s *Notifier) formatLeaderboard(players []club.Player) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Rating Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(players) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No ratings yet. Go play some matches!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for i, player := range players {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		rating := "unrated"
		if player.Rating != nil {
			rating = fmt.Sprintf("%d", *player.Rating)
		}
		playerText := fmt.Sprintf("%d. %s %s\n> *Rating*: %s", rank, medal, player.Name, rating)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerRating creates a Slack message with a player's rating and their latest changes.
func (s *Notifier) formatPlayerRating(player *club.Player, history []club.RatingHistoryEntry) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := fmt.Sprintf("📈 Rating for %s", player.Name)
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headerText, true, false)))

	if player.Rating == nil {
		text := fmt.Sprintf("%s has not played a rated match yet.", player.Name)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	lines := []string{fmt.Sprintf("> *Rating*: %d", *player.Rating)}
	for _, h := range history {
		lines = append(lines, fmt.Sprintf("> %s: %+d → %d", h.CreatedAt.In(s.location).Format("Jan 2"), h.Delta, h.RatingAfter))
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", strings.Join(lines, "\n"), false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerNotFound creates a Slack message for when a player is not found.
func (s *Notifier) formatPlayerNotFound(query string) slack.Message {
	text := fmt.Sprintf("Sorry, I couldn't find a player matching *%s*. Try a different name.", query)
	return slack.NewBlockMessage(slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil))
}
