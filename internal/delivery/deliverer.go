package delivery

import "context"

// Deliverer hands a rendered message to the destination bot. The concrete
// transport is an external collaborator; implementations must honor the
// context deadline so a stalled destination cannot hold a dispatch.
type Deliverer interface {
	Deliver(ctx context.Context, targetBot, text string) error
}
