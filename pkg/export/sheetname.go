package export

import (
	"strconv"
	"strings"
)

// MaxSheetNameLength is the xlsx sheet-name ceiling, in characters.
const MaxSheetNameLength = 31

const (
	sheetNameHead = 15
	sheetNameTail = 16
)

var invalidSheetChars = strings.NewReplacer(":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")

// SheetName derives the sheet name for a column: the name itself when it
// fits, otherwise its first 15 and last 16 characters.
func SheetName(column string) string {
	r := []rune(column)
	if len(r) <= MaxSheetNameLength {
		return column
	}
	return string(r[:sheetNameHead]) + string(r[len(r)-sheetNameTail:])
}

// sheetNamer hands out valid, workbook-unique sheet names. Names are compared
// case-insensitively, as spreadsheet applications do.
type sheetNamer struct {
	used map[string]struct{}
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: make(map[string]struct{})}
}

// Name returns the sheet name for the column at position idx (0-based).
func (n *sheetNamer) Name(column string, idx int) string {
	base := strings.Trim(invalidSheetChars.Replace(SheetName(column)), "'")
	if base == "" {
		base = "column_" + strconv.Itoa(idx+1)
	}
	name := base
	for i := 2; n.taken(name); i++ {
		suffix := "_" + strconv.Itoa(i)
		r := []rune(base)
		if keep := MaxSheetNameLength - len(suffix); len(r) > keep {
			r = r[:keep]
		}
		name = string(r) + suffix
	}
	n.used[strings.ToLower(name)] = struct{}{}
	return name
}

func (n *sheetNamer) taken(name string) bool {
	_, ok := n.used[strings.ToLower(name)]
	return ok
}
