package forwarding

import (
	"regexp"
	"strings"
)

// Fields maps extracted field names to their trimmed values. Fields whose
// label was not found in the message are absent, never empty entries.
type Fields map[string]string

// Extract locates each label in the message case-insensitively and captures
// the rest of that line as the field value. Values stop at a newline or at a
// literal '*' so markdown-emphasized values ("Produk: AUDIO RUQYAH*") come
// out clean; a '*' wrapping the label itself is tolerated the same way.
//
// Extraction is isolated per field: a label that cannot be turned into a
// pattern is skipped and never aborts the remaining fields.
func Extract(message string, fieldPatterns map[string]string) Fields {
	fields := make(Fields, len(fieldPatterns))

	for name, label := range fieldPatterns {
		value, ok := extractField(message, label)
		if !ok {
			continue
		}
		fields[name] = value
	}

	return fields
}

func extractField(message, label string) (string, bool) {
	if label == "" {
		return "", false
	}

	re, err := regexp.Compile(`(?i)\*?` + regexp.QuoteMeta(label) + `\*?[ \t]*([^*\n]*)`)
	if err != nil {
		// Malformed pattern: treat the field as absent.
		return "", false
	}

	match := re.FindStringSubmatch(message)
	if match == nil {
		return "", false
	}

	return strings.TrimSpace(match[1]), true
}
