package admin

// UpsertRuleRequest creates a rule or replaces the one with the same source
// pattern. Active defaults to true when omitted.
type UpsertRuleRequest struct {
	SourcePattern  string            `json:"source_pattern" binding:"required"`
	FieldPatterns  map[string]string `json:"field_patterns"`
	TargetBot      string            `json:"target_bot" binding:"required"`
	OutputTemplate string            `json:"output_template" binding:"required"`
	Active         *bool             `json:"active"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ForwardRequest pushes one message through the pipeline as if it had
// arrived on the inbound topic.
type ForwardRequest struct {
	Source  string `json:"source" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// PreviewRequest dry-runs extraction and rendering against an ad-hoc rule.
// Nothing is delivered or logged.
type PreviewRequest struct {
	Message        string            `json:"message" binding:"required"`
	FieldPatterns  map[string]string `json:"field_patterns" binding:"required"`
	OutputTemplate string            `json:"output_template" binding:"required"`
}

type PreviewResponse struct {
	Fields   map[string]string `json:"fields"`
	Rendered string            `json:"rendered"`
}
