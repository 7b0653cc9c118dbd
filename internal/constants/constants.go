package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultDeliveryTimeout = 10 * time.Second
)

const (
	ActivityLogCapacity = 100
	ActivityLogKey      = "forwarder:activity"
)

const (
	RulesCollection = "forward_rules"
	DefaultMongoDB  = "kurir"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultInboundTopic = "inbound_messages"
)
