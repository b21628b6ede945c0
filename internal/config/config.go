package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
// It exits the process if a required variable is missing.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	cfg, err := load(os.LookupEnv)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	return cfg
}

func load(lookup func(string) (string, bool)) (Config, error) {
	var missing []string
	// getEnv returns a required env var and records it if it is not set.
	getEnv := func(key string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		missing = append(missing, key)
		return ""
	}
	getEnvOrDefault := func(key, fallback string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		DBName: getEnv("DB_NAME"),
		Port:   getEnv("PORT"),
		Slack: SlackConfig{
			Token:         getEnvOrDefault("SLACK_BOT_TOKEN", ""),
			ChannelID:     getEnvOrDefault("SLACK_CHANNEL_ID", ""),
			SigningSecret: getEnvOrDefault("SLACK_SIGNING_SECRET", ""),
		},
		Turso: TursoConfig{
			PrimaryURL: getEnvOrDefault("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvOrDefault("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID: getEnvOrDefault("GCP_PROJECT", ""),
		PubSub: PubSubConfig{
			PushAudience:       getEnvOrDefault("PUBSUB_PUSH_AUDIENCE", ""),
			PushServiceAccount: getEnvOrDefault("PUBSUB_PUSH_SERVICE_ACCOUNT", ""),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %v", missing)
	}
	return cfg, nil
}
