package observability

import (
	"context"
	"sync"

	"channelbox/internal/telemetry"
)

var (
	publisherMu      sync.RWMutex
	defaultPublisher telemetry.Publisher
)

// SetPublisher installs the broker used by PublishEvent. A nil publisher
// disables event publishing.
func SetPublisher(publisher telemetry.Publisher) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	defaultPublisher = publisher
}

// PublishEvent sends an event envelope through the installed publisher.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	publisherMu.RLock()
	publisher := defaultPublisher
	publisherMu.RUnlock()
	if publisher == nil {
		return nil
	}

	err := publisher.Publish(ctx, routingKey, message, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
