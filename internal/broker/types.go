package broker

import "context"

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc receives the raw message body; each topic carries its own
// payload type, so decoding is the handler's job.
type HandlerFunc func(ctx context.Context, key string, value []byte) error
