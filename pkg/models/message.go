package models

import "time"

// InboundMessage is the event produced by the external webhook receiver
// after it has authenticated and parsed the raw chat-platform payload.
type InboundMessage struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
