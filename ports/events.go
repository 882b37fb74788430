package ports

import (
	"context"

	"github.com/layer-3/attestor/core"
)

// EventPublisher notifies other services that an attestation was issued
type EventPublisher interface {
	PublishIssued(ctx context.Context, event core.IssuedEvent) error
}
