package tableprinter

import (
	"regexp"

	"github.com/mattn/go-runewidth"
	"github.com/rodaine/table"
)

// ansiPattern matches ANSI SGR escape sequences (e.g. \033[32m).
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// VisibleWidth returns the display width of s in terminal columns, ignoring
// ANSI SGR escape sequences. Wide characters such as East Asian glyphs and
// emoji count as two columns.
func VisibleWidth(s string) int {
	return runewidth.StringWidth(ansiPattern.ReplaceAllString(s, ""))
}

// NewTable creates a table with the given column headers, pre-configured
// with an ANSI-aware width function so colored cell values don't break
// column alignment.
func NewTable(headers ...interface{}) table.Table {
	return table.New(headers...).WithWidthFunc(VisibleWidth)
}
