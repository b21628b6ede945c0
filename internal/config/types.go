package config

// Config holds all configuration for the application.
type Config struct {
	DBName    string
	Port      string
	Slack     SlackConfig
	Turso     TursoConfig
	ProjectID string
	PubSub    PubSubConfig
	LogLevel  string
}

// SlackConfig is optional. Without a token notifications are only logged,
// without a signing secret slash command requests are not verified.
type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}

// TursoConfig selects a remote libSQL database instead of the local SQLite file.
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// PubSubConfig verifies push deliveries. Pub/Sub signs each push with an OIDC
// token for Audience, issued to ServiceAccount. Without an audience push
// requests are not verified.
type PubSubConfig struct {
	PushAudience       string
	PushServiceAccount string
}
