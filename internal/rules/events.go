package rules

import (
	"context"
	"encoding/json"

	"kurir/internal/broker"
	"kurir/internal/logger"
	"kurir/pkg/models"
)

// ConfigEventHandler reloads the rule cache whenever a peer instance changes
// a rule. The reload always goes back to the repository, so stale or
// out-of-order events cannot corrupt the cache; jitter is skipped because
// the event already staggers instances.
func ConfigEventHandler(store *Store, log logger.Logger) broker.HandlerFunc {
	return func(ctx context.Context, key string, value []byte) error {
		var event models.ConfigUpdateEvent
		if err := json.Unmarshal(value, &event); err != nil {
			log.WarnwCtx(ctx, "Skipping malformed config event",
				"error", err,
			)
			return nil
		}

		if event.EventType != models.EventTypeRuleUpdated {
			return nil
		}

		log.InfowCtx(ctx, "Received rule config event",
			"action", event.Action,
			"source_pattern", event.SourcePattern,
		)

		return store.ReloadRules(ctx, true)
	}
}
