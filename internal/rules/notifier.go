package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kurir/internal/broker"
	"kurir/internal/logger"
	"kurir/pkg/models"
)

// Notifier publishes rule change events to the config topic so peer
// instances reload their caches without waiting for the periodic refresh.
type Notifier struct {
	producer broker.Producer
	topic    string
	logger   logger.Logger
}

func NewNotifier(producer broker.Producer, topic string, log logger.Logger) *Notifier {
	return &Notifier{
		producer: producer,
		topic:    topic,
		logger:   log,
	}
}

func (n *Notifier) PublishRuleEvent(ctx context.Context, action, sourcePattern string) error {
	event := models.ConfigUpdateEvent{
		EventType:     models.EventTypeRuleUpdated,
		SourcePattern: sourcePattern,
		Action:        action,
		Timestamp:     time.Now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal config event: %w", err)
	}

	if err := n.producer.Publish(ctx, n.topic, sourcePattern, body); err != nil {
		return fmt.Errorf("failed to publish config event: %w", err)
	}

	n.logger.DebugwCtx(ctx, "Published rule config event",
		"action", action,
		"source_pattern", sourcePattern,
	)
	return nil
}
