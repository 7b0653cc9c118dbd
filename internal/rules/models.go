package rules

import "time"

// Rule describes how messages from one source are transformed and forwarded.
// SourcePattern is the unique key: upserting an existing pattern replaces the
// prior rule in place.
type Rule struct {
	SourcePattern  string            `json:"source_pattern" bson:"_id"`
	FieldPatterns  map[string]string `json:"field_patterns" bson:"field_patterns"`
	TargetBot      string            `json:"target_bot" bson:"target_bot"`
	OutputTemplate string            `json:"output_template" bson:"output_template"`
	Active         bool              `json:"active" bson:"active"`
	CreatedAt      time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" bson:"updated_at"`
}
