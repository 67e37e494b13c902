package compose

import "strings"

// DocContribution is one layer's CLAUDE.md content.
type DocContribution struct {
	LayerName string
	Content   []byte
}

// ConcatClaudeMd joins the contributions in layer order. The first
// contribution appears verbatim (outer whitespace trimmed); each later one
// is preceded by a horizontal-rule separator and an HTML comment naming the
// contributing layer. Whitespace-only contributions are skipped and leave no
// dangling separator. Returns nil when nothing contributed; otherwise the
// result ends with a single trailing newline.
func ConcatClaudeMd(contributions []DocContribution) []byte {
	var builder strings.Builder
	started := false
	for _, contribution := range contributions {
		trimmed := strings.TrimSpace(string(contribution.Content))
		if trimmed == "" {
			continue
		}
		if started {
			builder.WriteString(attributionSeparator(contribution.LayerName))
		}
		builder.WriteString(trimmed)
		started = true
	}
	if !started {
		return nil
	}
	return []byte(builder.String() + "\n")
}

// attributionSeparator is the block inserted before every contribution after
// the first, naming the layer the following content came from.
func attributionSeparator(layerName string) string {
	return "\n\n---\n\n<!-- from stack: " + layerName + " -->\n\n"
}
