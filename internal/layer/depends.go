package layer

import "strings"

// ParseDepends parses the contents of a depends.txt file: one stack name per
// line. A '#' starts a comment that runs to the end of the line, surrounding
// whitespace is trimmed, and blank or comment-only lines are skipped.
func ParseDepends(data []byte) []string {
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}
