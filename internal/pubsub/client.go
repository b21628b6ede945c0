package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// New connects to Google Cloud Pub/Sub in the given project.
func New(ctx context.Context, projectID string) (PubSubClient, error) {
	pubSubC, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	teardown := func() {
		if err := pubSubC.Close(); err != nil {
			log.Error("Failed to close pubsub client", "error", err)
		}
	}

	return &client{
		client:   pubSubC,
		teardown: teardown,
	}, nil
}

// SendMessage publishes data, encoded as MessagePack, to the topic named after the event type.
func (c *client) SendMessage(ctx context.Context, topic EventType, data any) error {
	msgpackData, err := Encode(data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return err
	}
	message := &pubsub.Message{
		Data:       msgpackData,
		Attributes: map[string]string{"event": string(topic)},
	}
	t := c.client.Topic(string(topic))
	defer t.Stop()

	result := t.Publish(ctx, message)
	serverID, err := result.Get(ctx)
	if err != nil {
		log.Error("Failed to publish message", "error", err, "topic", topic)
		return err
	}
	log.Info("SendMessage", "serverID", serverID, "topic", topic)
	return nil
}

// ProcessMessage decodes a MessagePack payload into returnValue.
func (c *client) ProcessMessage(data []byte, returnValue any) error {
	return Decode(data, returnValue)
}

func (c *client) Close() error {
	c.teardown()
	return nil
}

// Encode marshals data as MessagePack.
func Encode(data any) ([]byte, error) {
	return msgpack.Marshal(data)
}

// Decode unmarshals a MessagePack payload into the provided pointer.
func Decode(data []byte, returnValue any) error {
	if err := msgpack.Unmarshal(data, returnValue); err != nil {
		log.Error("MessagePack unmarshal error", "error", err)
		return err
	}
	return nil
}

// DecodePush unwraps a push delivery body and decodes its payload into returnValue.
func DecodePush(body []byte, returnValue any) error {
	var msg PushMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("invalid push envelope: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(msg.Message.Data)
	if err != nil {
		return fmt.Errorf("invalid base64 data: %w", err)
	}
	return Decode(raw, returnValue)
}
