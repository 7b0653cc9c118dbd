package config

import (
	"fmt"
	"time"

	"kurir/internal/constants"
)

// Validate checks static invariants and fills defaults for optional values.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Database.MongoDB.URI == "" {
		return fmt.Errorf("database.mongodb.uri is required")
	}
	if cfg.Database.MongoDB.Database == "" {
		cfg.Database.MongoDB.Database = constants.DefaultMongoDB
	}

	if cfg.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if cfg.Database.Redis.Port <= 0 {
		cfg.Database.Redis.Port = 6379
	}

	if cfg.Broker.Type != "" && cfg.Broker.Type != "kafka" {
		return fmt.Errorf("broker.type must be \"kafka\", got %q", cfg.Broker.Type)
	}
	if cfg.Broker.Type == "kafka" {
		if len(cfg.Broker.Kafka.Brokers) == 0 {
			return fmt.Errorf("broker.kafka.brokers is required when broker.type is kafka")
		}
		if cfg.Broker.Kafka.InboundTopic == "" {
			cfg.Broker.Kafka.InboundTopic = constants.DefaultInboundTopic
		}
	}

	if cfg.Forwarder.Delivery.Endpoint == "" {
		return fmt.Errorf("forwarder.delivery.endpoint is required")
	}
	if cfg.Forwarder.Delivery.Timeout <= 0 {
		cfg.Forwarder.Delivery.Timeout = constants.DefaultDeliveryTimeout
	}

	if cfg.Forwarder.Reload.IntervalSeconds <= 0 {
		cfg.Forwarder.Reload.IntervalSeconds = 60
	}
	if cfg.Forwarder.Reload.JitterMaxMilliseconds < 0 {
		return fmt.Errorf("forwarder.reload.jitter_max_milliseconds must not be negative")
	}

	if cfg.CircuitBreaker.Enabled {
		if cfg.CircuitBreaker.Timeout <= 0 {
			cfg.CircuitBreaker.Timeout = 60 * time.Second
		}
		if cfg.CircuitBreaker.Interval <= 0 {
			cfg.CircuitBreaker.Interval = 60 * time.Second
		}
		if cfg.CircuitBreaker.FailureRatio <= 0 || cfg.CircuitBreaker.FailureRatio > 1 {
			return fmt.Errorf("circuitbreaker.failure_ratio must be in (0, 1], got %v", cfg.CircuitBreaker.FailureRatio)
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	return nil
}
