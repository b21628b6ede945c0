package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/padel-elo/internal/club"
	"github.com/mauv0809/padel-elo/internal/database"
	"github.com/spf13/cobra"
)

var (
	dbName   string
	filePath string
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Upsert club players into the padel-elo database",
	Long: `Reads players as CSV lines of name,email[,role] from a file or stdin and
upserts them into the configured database. Players are matched on email, so
running the seeder twice updates names and roles instead of duplicating players.

The database is taken from TURSO_PRIMARY_URL/TURSO_AUTH_TOKEN when set,
otherwise from --db or DB_NAME.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if filePath != "" && filePath != "-" {
			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", filePath, err)
			}
			defer f.Close()
			in = f
		}

		players, err := readPlayers(in)
		if err != nil {
			return err
		}
		if len(players) == 0 {
			log.Warn("No players found in input")
			return nil
		}

		primaryURL := os.Getenv("TURSO_PRIMARY_URL")
		if dbName == "" && primaryURL == "" {
			return errors.New("no database configured, set --db, DB_NAME or TURSO_PRIMARY_URL")
		}
		db, teardown, err := database.InitDB(dbName, primaryURL, os.Getenv("TURSO_AUTH_TOKEN"))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer teardown()

		if err := club.New(db).UpsertPlayers(cmd.Context(), players); err != nil {
			return fmt.Errorf("failed to upsert players: %w", err)
		}
		log.Info("Seeded players", "count", len(players))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&dbName, "db", "", "SQLite database file (defaults to DB_NAME)")
	rootCmd.Flags().StringVarP(&filePath, "file", "f", "-", "CSV file with name,email[,role] lines, - for stdin")
}

// readPlayers parses name,email[,role] records. A header line starting with
// "name" and blank lines are skipped.
func readPlayers(r io.Reader) ([]club.Player, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var players []club.Player
	seen := make(map[string]bool)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}
		if len(record) < 2 || len(record) > 3 {
			return nil, fmt.Errorf("line %d: expected name,email[,role], got %d fields", line, len(record))
		}

		name, email := strings.TrimSpace(record[0]), strings.ToLower(strings.TrimSpace(record[1]))
		if name == "" || email == "" {
			return nil, fmt.Errorf("line %d: name and email are required", line)
		}
		if seen[email] {
			return nil, fmt.Errorf("line %d: duplicate email %s", line, email)
		}
		seen[email] = true

		role := club.RolePlayer
		if len(record) == 3 && strings.TrimSpace(record[2]) != "" {
			role = strings.ToUpper(strings.TrimSpace(record[2]))
			if role != club.RolePlayer && role != club.RoleAdmin {
				return nil, fmt.Errorf("line %d: unknown role %q", line, record[2])
			}
		}

		players = append(players, club.Player{
			Name:   name,
			Email:  email,
			Role:   role,
			Active: true,
		})
	}
	return players, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}
	if dbName == "" {
		dbName = os.Getenv("DB_NAME")
	}

	log.Info("Starting database seeder...")
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal("Seeding failed", "error", err)
	}
}
