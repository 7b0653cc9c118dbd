package models

import "time"

// ConfigUpdateEvent is broadcast on the config topic whenever a forwarding
// rule changes, so every running instance reloads its rule cache.
type ConfigUpdateEvent struct {
	EventType     string    `json:"event_type"`
	SourcePattern string    `json:"source_pattern,omitempty"`
	Action        string    `json:"action"` // "create", "update", "delete", "toggle"
	Timestamp     time.Time `json:"timestamp"`
	ChangedBy     string    `json:"changed_by,omitempty"`
}

const (
	EventTypeRuleUpdated = "forward_rule_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
)
