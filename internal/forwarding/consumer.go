package forwarding

import (
	"context"
	"encoding/json"

	"kurir/internal/broker"
	pkgerrors "kurir/pkg/errors"
	"kurir/pkg/models"
)

// InboundHandler decodes chat messages off the inbound topic and runs them
// through the dispatcher. Dispatch outcomes land in the activity log, so the
// handler only reports decode failures; those go to the DLQ rather than
// being retried, a malformed body never becomes valid.
func InboundHandler(dispatcher *Dispatcher) broker.HandlerFunc {
	return func(ctx context.Context, key string, value []byte) error {
		var msg models.InboundMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return pkgerrors.ErrValidation.
				WithCause(err).
				WithDetail("message", "failed to unmarshal inbound message")
		}

		dispatcher.Dispatch(ctx, msg)
		return nil
	}
}
