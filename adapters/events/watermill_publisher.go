package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
)

// IssuedTopic carries core.IssuedEvent payloads.
const IssuedTopic = "attestor.issued"

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     IssuedTopic,
	}
}

// PublishIssued publishes an issued event
func (p *WatermillPublisher) PublishIssued(ctx context.Context, event core.IssuedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("channel", string(event.Channel))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
