package activity

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// LogEntry records one dispatch attempt. Entries are immutable once
// appended; TransformedMessage is empty on failure.
type LogEntry struct {
	ID                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	Source             string    `json:"source"`
	OriginalMessage    string    `json:"original_message"`
	TransformedMessage string    `json:"transformed_message"`
	Status             Status    `json:"status"`
	Error              string    `json:"error,omitempty"`
}
