package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mauv0809/padel-elo/internal/recorder"
	"github.com/spf13/cobra"
)

var (
	matchesLimit int

	recordCreatedBy string
	recordA1        string
	recordA2        string
	recordB1        string
	recordB2        string
	recordSets      []string
	recordPlayedAt  string
	recordDryRun    bool
)

func init() {
	matchesCmd.Flags().IntVar(&matchesLimit, "limit", 25, "Maximum number of matches to list")

	recordCmd.Flags().StringVar(&recordCreatedBy, "created-by", "", "ID of the player reporting the match")
	recordCmd.Flags().StringVar(&recordA1, "a1", "", "Team A, player 1 ID")
	recordCmd.Flags().StringVar(&recordA2, "a2", "", "Team A, player 2 ID")
	recordCmd.Flags().StringVar(&recordB1, "b1", "", "Team B, player 1 ID")
	recordCmd.Flags().StringVar(&recordB2, "b2", "", "Team B, player 2 ID")
	recordCmd.Flags().StringArrayVar(&recordSets, "set", nil, "Set score as A-B, e.g. 6-4 (repeat for each set)")
	recordCmd.Flags().StringVar(&recordPlayedAt, "played-at", "", "When the match was played (RFC3339), defaults to now")
	recordCmd.Flags().BoolVar(&recordDryRun, "dry-run", false, "Preview rating changes without recording")
	for _, name := range []string{"created-by", "a1", "a2", "b1", "b2", "set"} {
		recordCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(postLeaderboardCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the active players with their ratings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/api/players")
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the rating leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/api/leaderboard")
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List the most recent matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/api/matches?limit=" + strconv.Itoa(matchesLimit))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <playerID>",
	Short: "Show a player's rating history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/api/players/" + url.PathEscape(args[0]) + "/history")
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a match result",
	Example: `  padel-cli record --created-by p1 --a1 p1 --a2 p2 --b1 p3 --b2 p4 --set 6-4 --set 3-6 --set 6-2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRecordRequest()
		if err != nil {
			return err
		}
		endpoint := "/api/matches"
		if recordDryRun {
			endpoint += "?dry_run=true"
		}
		return performPostRequest(endpoint, req)
	},
}

var postLeaderboardCmd = &cobra.Command{
	Use:   "post-leaderboard",
	Short: "Post the current leaderboard to the Slack channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/leaderboard/post", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

func buildRecordRequest() (recorder.Request, error) {
	req := recorder.Request{CreatedBy: recordCreatedBy}
	if recordPlayedAt != "" {
		playedAt, err := time.Parse(time.RFC3339, recordPlayedAt)
		if err != nil {
			return req, fmt.Errorf("invalid --played-at: %w", err)
		}
		req.PlayedAt = &playedAt
	}
	for _, raw := range recordSets {
		a, b, err := parseSetScore(raw)
		if err != nil {
			return req, err
		}
		req.Sets = append(req.Sets, recorder.SetInput{
			TeamAPlayer1ID: recordA1,
			TeamAPlayer2ID: recordA2,
			TeamBPlayer1ID: recordB1,
			TeamBPlayer2ID: recordB2,
			ScoreA:         a,
			ScoreB:         b,
		})
	}
	return req, nil
}

// parseSetScore parses a set score written as "6-4".
func parseSetScore(raw string) (a, b int, err error) {
	left, right, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid set score %q, expected A-B", raw)
	}
	if a, err = strconv.Atoi(strings.TrimSpace(left)); err != nil {
		return 0, 0, fmt.Errorf("invalid set score %q: %w", raw, err)
	}
	if b, err = strconv.Atoi(strings.TrimSpace(right)); err != nil {
		return 0, 0, fmt.Errorf("invalid set score %q: %w", raw, err)
	}
	return a, b, nil
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	return printResponse(resp)
}

func performPostRequest(endpoint string, payload any) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := http.Post(url, "application/json", body)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
