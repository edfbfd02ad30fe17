// Package render substitutes {{name}} placeholders in reminder templates.
package render

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Render replaces every placeholder whose lower-cased name has a binding with
// the bound value, verbatim. Unknown placeholders are left as written.
// Substituted values are not scanned again.
func Render(template string, bindings map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.ToLower(placeholder.FindStringSubmatch(match)[1])
		if v, ok := bindings[name]; ok {
			return v
		}
		return match
	})
}

// Placeholders lists the distinct placeholder names used in template, in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
