package ruledoc

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/quailbyte/ruledup/internal/debug"
)

// gitignorePatterns reads root/.gitignore and converts its entries to
// doublestar exclusion globs. Negation entries are skipped: rule pools
// do not need re-include semantics, and honoring the plain ignores is
// enough to keep build output and editor droppings out of the pool.
func gitignorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		if g := gitignoreToGlob(line); g != "" {
			patterns = append(patterns, g)
		}
	}
	if len(patterns) > 0 {
		debug.LogScan("gitignore added %d exclusion patterns\n", len(patterns))
	}
	return patterns
}

// gitignoreToGlob maps one .gitignore entry onto a doublestar glob. A
// trailing slash marks a directory pattern and a leading slash anchors
// the entry to the pool root; unanchored entries match at any depth.
func gitignoreToGlob(entry string) string {
	dir := strings.HasSuffix(entry, "/")
	entry = strings.TrimSuffix(entry, "/")
	anchored := strings.HasPrefix(entry, "/")
	entry = strings.TrimPrefix(entry, "/")
	if entry == "" {
		return ""
	}

	switch {
	case dir && anchored:
		return entry + "/**"
	case dir:
		return "**/" + entry + "/**"
	case anchored:
		return entry
	default:
		return "**/" + entry
	}
}
