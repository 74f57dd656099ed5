package export

import (
	"path/filepath"
	"strings"
)

// Filename turns a user-supplied download name into a safe .xlsx file name,
// falling back to def when nothing usable remains.
func Filename(name, def string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '"', r == '/', r == ':', r == '*', r == '?', r == '<', r == '>', r == '|':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSuffix(name, ".xlsx")
	if name == "" || name == "." || name == ".." {
		name = def
	}
	return name + ".xlsx"
}
