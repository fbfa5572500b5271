// Package pathutil converts between the absolute paths used internally
// and the relative paths shown to users.
//
// The engine tracks the pool root and candidate documents by absolute
// path so results stay unambiguous across working directories. Command
// output prefers paths relative to the working directory so reports
// stay short and copy-pasteable.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/rules/perf.md", "/home/user/project") → "rules/perf.md"
//   - ToRelative("/other/location/rule.md", "/home/user/project") → "/other/location/rule.md" (outside root)
//   - ToRelative("rules/perf.md", "/home/user/project") → "rules/perf.md" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	// A path outside the root would render as ../..; the absolute form
	// is clearer there
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}
