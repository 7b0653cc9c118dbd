package forwarding

import "strings"

// Render substitutes every {fieldName} occurrence in the template with the
// extracted value. Rendering is total: placeholders for absent fields stay
// verbatim in the output so an operator can see which extraction failed
// instead of silently losing the marker.
func Render(template string, fields Fields) string {
	out := template
	for name, value := range fields {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
