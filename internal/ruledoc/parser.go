// Package ruledoc reads rule documents from a pool directory. A rule
// document is a markdown file with an optional TOML front matter block
// between +++ delimiters; the body supplies the description, the SQL
// pattern, and the bad/good examples. The scanner walks the pool with
// include and exclude globs, and the watcher keeps the pool fresh
// while the engine runs.
package ruledoc

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/types"
)

// frontMatterDelimiter opens and closes the TOML header of a document.
const frontMatterDelimiter = "+++"

// frontMatter is the TOML header of a rule document. Every field is
// optional; Parse fills gaps from the document path and body.
type frontMatter struct {
	ID       string         `toml:"id"`
	Title    string         `toml:"title"`
	Category string         `toml:"category"`
	Severity string         `toml:"severity"`
	Tags     []string       `toml:"tags"`
	Created  time.Time      `toml:"created"`
	Updated  time.Time      `toml:"updated"`
	Metadata map[string]any `toml:"metadata"`
}

// Parse converts one rule document into a Rule. path is the document's
// pool-relative slash path; when the front matter omits a field the
// file name stands in for the id and the parent directory for the
// category. A document with no front matter at all parses to a rule
// built entirely from the body, so plain markdown notes still enter
// the pool.
func Parse(path string, data []byte) (types.Rule, error) {
	fm, body, err := splitFrontMatter(path, string(data))
	if err != nil {
		return types.Rule{}, err
	}

	doc := parseBody(body)

	category := fm.Category
	if category == "" {
		category = categoryFromPath(path)
	}
	rule := types.Rule{
		ID:          fm.ID,
		Title:       fm.Title,
		Description: doc.description,
		Category:    types.ParseCategory(category),
		Severity:    types.ParseSeverity(fm.Severity),
		SQLPattern:  doc.sqlPattern,
		Examples:    doc.examples,
		Tags:        fm.Tags,
		CreatedAt:   fm.Created,
		UpdatedAt:   fm.Updated,
		Metadata:    fm.Metadata,
	}
	if rule.ID == "" {
		base := filepath.Base(path)
		rule.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if rule.Title == "" {
		rule.Title = doc.heading
	}
	return rule, nil
}

// categoryFromPath derives a category from the document's parent
// directory, so pools laid out as <category>/<rule>.md need no front
// matter at all. Documents at the pool root fall back to the general
// category.
func categoryFromPath(path string) string {
	dir := filepath.Base(filepath.Dir(filepath.ToSlash(path)))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// splitFrontMatter cuts the TOML header off the document. Documents
// that do not start with the delimiter are all body. An opening
// delimiter without a closing one is a parse error rather than a
// silent swallow of the whole document.
func splitFrontMatter(path, doc string) (frontMatter, string, error) {
	var fm frontMatter

	rest, ok := strings.CutPrefix(doc, frontMatterDelimiter)
	if !ok || (rest != "" && rest[0] != '\n' && rest[0] != '\r') {
		return fm, doc, nil
	}
	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	if end < 0 {
		return fm, "", ruleduperrors.NewParseError(path, 1, "", errors.New("unterminated front matter"))
	}
	header := rest[:end]
	body := rest[end+1+len(frontMatterDelimiter):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}

	if err := toml.Unmarshal([]byte(header), &fm); err != nil {
		line, field := 1, ""
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			// header keeps the newline of the delimiter line, so TOML
			// rows line up with the document's own line numbers.
			row, _ := derr.Position()
			line = row
			field = strings.Join(derr.Key(), ".")
		}
		return fm, "", ruleduperrors.NewParseError(path, line, field, err)
	}
	return fm, body, nil
}

const (
	sectionBad  = "bad"
	sectionGood = "good"
)

// bodyDoc is what one pass over the markdown body yields.
type bodyDoc struct {
	heading     string
	description string
	sqlPattern  string
	examples    types.Examples
}

// parseBody walks the body line by line. The first h1 heading is
// lifted out as the fallback title, the first fenced sql block becomes
// the SQL pattern, and fenced blocks under "## Bad" / "## Good"
// headings (or their Chinese equivalents) become examples. Everything
// else stays in the description, fences included, so downstream
// matchers still see the document's real shape.
func parseBody(body string) bodyDoc {
	var (
		doc       bodyDoc
		desc      []string
		fence     []string
		fenceLang string
		inFence   bool
		section   string
	)

	flushFence := func() {
		block := strings.Join(fence, "\n")
		fence = fence[:0]
		switch {
		case section == sectionBad:
			doc.examples.Bad = append(doc.examples.Bad, block)
		case section == sectionGood:
			doc.examples.Good = append(doc.examples.Good, block)
		case strings.EqualFold(fenceLang, "sql") && doc.sqlPattern == "":
			doc.sqlPattern = block
		default:
			desc = append(desc, "```"+fenceLang)
			if block != "" {
				desc = append(desc, block)
			}
			desc = append(desc, "```")
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if inFence {
			if strings.HasPrefix(trimmed, "```") {
				inFence = false
				flushFence()
				continue
			}
			fence = append(fence, line)
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "```"):
			inFence = true
			fenceLang = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
		case strings.HasPrefix(trimmed, "# ") && doc.heading == "":
			doc.heading = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		case strings.HasPrefix(trimmed, "## "):
			section = exampleSection(trimmed)
			if section == "" {
				desc = append(desc, line)
			}
		default:
			// Prose inside an example section is commentary on the
			// snippets, not rule text.
			if section == "" {
				desc = append(desc, line)
			}
		}
	}
	if inFence {
		// Unterminated fence: degrade to description text.
		desc = append(desc, "```"+fenceLang)
		if len(fence) > 0 {
			desc = append(desc, strings.Join(fence, "\n"))
		}
	}

	doc.description = strings.TrimSpace(strings.Join(desc, "\n"))
	return doc
}

// exampleSection classifies an h2 heading, returning sectionBad,
// sectionGood, or "" for headings that do not open an example section.
func exampleSection(heading string) string {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(heading, "##")))
	switch {
	case strings.HasPrefix(h, "bad"), strings.HasPrefix(h, "反例"):
		return sectionBad
	case strings.HasPrefix(h, "good"), strings.HasPrefix(h, "正例"):
		return sectionGood
	}
	return ""
}
