package delivery

import (
	"context"
	"fmt"

	"kurir/pkg/circuitbreaker"
)

// CircuitBreakerDeliverer fails fast while the destination bot API is down
// instead of burning the delivery timeout on every dispatch.
type CircuitBreakerDeliverer struct {
	deliverer Deliverer
	cb        *circuitbreaker.Wrapper
	name      string
}

func NewCircuitBreakerDeliverer(deliverer Deliverer, cfg circuitbreaker.Config) *CircuitBreakerDeliverer {
	return &CircuitBreakerDeliverer{
		deliverer: deliverer,
		cb:        circuitbreaker.NewWrapper(cfg),
		name:      cfg.Name,
	}
}

func (d *CircuitBreakerDeliverer) Deliver(ctx context.Context, targetBot, text string) error {
	_, err := d.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, d.deliverer.Deliver(ctx, targetBot, text)
	})

	d.cb.RecordRequest(err == nil)

	if err != nil {
		if d.cb.IsOpen() {
			return fmt.Errorf("circuit breaker is open for %s: %w", d.name, err)
		}
		return err
	}

	return nil
}

func (d *CircuitBreakerDeliverer) IsOpen() bool {
	return d.cb.IsOpen()
}
