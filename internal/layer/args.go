package layer

import (
	"strings"

	"github.com/kurtosis-tech/stacktrace"
)

// ParseStacksArg splits a user-supplied stack list on '+' or ',' (both
// separators are accepted, and may be mixed). Surrounding whitespace is
// trimmed and empty segments are dropped.
func ParseStacksArg(arg string) ([]string, error) {
	parts := strings.FieldsFunc(arg, func(r rune) bool {
		return r == '+' || r == ','
	})
	var names []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		names = append(names, part)
	}
	if len(names) == 0 {
		return nil, stacktrace.NewError("no stack names found in '%s'", arg)
	}
	return names, nil
}
