package ruledoc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/debug"
	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/security"
	"github.com/quailbyte/ruledup/internal/types"
)

// defaultInclude is used when a scan has no include globs of its own.
var defaultInclude = []string{"**/*.md"}

// defaultMaxDocumentKB bounds a single document when no cap is
// configured. Rule documents run a few KB; anything near this limit
// is not a rule document.
const defaultMaxDocumentKB = 4096

// Options selects which documents a scan reads.
type Options struct {
	Include          []string // Doublestar globs; empty means **/*.md
	Exclude          []string
	RespectGitignore bool  // Fold the root's .gitignore into the exclusions
	MaxDocumentKB    int64 // Per-document size cap; 0 means the default
}

// OptionsFromConfig lifts the pool-related settings out of a full
// configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Include:          cfg.Include,
		Exclude:          cfg.Exclude,
		RespectGitignore: cfg.Pool.RespectGitignore,
		MaxDocumentKB:    int64(cfg.Pool.MaxDocumentKB),
	}
}

func (o Options) includes() []string {
	if len(o.Include) == 0 {
		return defaultInclude
	}
	return o.Include
}

func (o Options) maxDocumentKB() int64 {
	if o.MaxDocumentKB <= 0 {
		return defaultMaxDocumentKB
	}
	return o.MaxDocumentKB
}

// excludes resolves the exclusion globs, folding in the root's
// .gitignore when asked to. The configured slice is never appended to
// in place.
func (o Options) excludes(root string) []string {
	exclude := o.Exclude
	if o.RespectGitignore {
		exclude = append(exclude[:len(exclude):len(exclude)], gitignorePatterns(root)...)
	}
	return exclude
}

// Scan walks root and parses every matching rule document. Documents
// that fail to read or parse are skipped and reported together in a
// MultiError; the returned rules are always usable. Scan fails
// outright only when the root itself cannot be walked.
func Scan(root string, opts Options) ([]types.Rule, error) {
	include := opts.includes()
	exclude := opts.excludes(root)

	paths, err := collectPaths(root, include, exclude)
	if err != nil {
		return nil, err
	}
	debug.LogScan("scanning %d documents under %s\n", len(paths), root)

	// Parse in parallel but keep results indexed by path so the output
	// order matches the walk order.
	rules := make([]types.Rule, len(paths))
	failures := make([]error, len(paths))
	parsed := make([]bool, len(paths))

	validator := security.NewDocumentValidator(opts.maxDocumentKB())

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, rel := range paths {
		g.Go(func() error {
			abs := filepath.Join(root, filepath.FromSlash(rel))
			if verr := validator.CheckSize(abs); verr != nil {
				failures[i] = fmt.Errorf("skip %s: %w", rel, verr)
				return nil
			}
			data, rerr := os.ReadFile(abs)
			if rerr != nil {
				failures[i] = fmt.Errorf("read %s: %w", rel, rerr)
				return nil
			}
			if verr := validator.CheckContent(data); verr != nil {
				failures[i] = fmt.Errorf("skip %s: %w", rel, verr)
				return nil
			}
			rule, perr := Parse(rel, data)
			if perr != nil {
				failures[i] = perr
				return nil
			}
			rules[i] = rule
			parsed[i] = true
			return nil
		})
	}
	// Workers report through the failures slice, never through the group.
	_ = g.Wait()

	kept := make([]types.Rule, 0, len(paths))
	var errs []error
	for i := range paths {
		if parsed[i] {
			kept = append(kept, rules[i])
		}
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
	}
	debug.LogScan("parsed %d rules, %d failures\n", len(kept), len(errs))
	if len(errs) > 0 {
		return kept, ruleduperrors.NewMultiError(errs)
	}
	return kept, nil
}

// collectPaths walks root and returns the pool-relative slash paths of
// documents matching the include globs and none of the exclude globs.
// Excluded directories are pruned without descending into them.
func collectPaths(root string, include, exclude []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			debug.LogScan("skipping %s: %v\n", p, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if matchesDir(exclude, rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !matchAny(include, rel) || matchAny(exclude, rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

// matchAny reports whether rel matches any of the patterns. Invalid
// patterns never match.
func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// matchesDir checks a directory against exclusion patterns. A pattern
// like **/node_modules/** names the directory's contents, so the
// trailing globstar is also tried trimmed for the directory itself.
func matchesDir(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		trimmed := strings.TrimSuffix(p, "/**")
		if trimmed == p {
			continue
		}
		if ok, err := doublestar.Match(trimmed, rel); err == nil && ok {
			return true
		}
	}
	return false
}
