package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
// It doubles as the topic name.
type EventType string

const (
	EventMatchRecorded EventType = "match-recorded"
)

// PushMessage is the JSON envelope Pub/Sub posts to push subscribers.
type PushMessage struct {
	Subscription string `json:"subscription"`
	Message      struct {
		ID   string `json:"messageId"`
		Data string `json:"data"` // base64-encoded MessagePack payload
	} `json:"message"`
}
