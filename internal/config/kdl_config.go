package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .ruledup.kdl file in dir.
// Returns (nil, nil) when no file exists so callers can fall back to
// defaults or another layer.
func LoadKDL(dir string) (*Config, error) {
	return LoadKDLFile(filepath.Join(dir, ".ruledup.kdl"))
}

// LoadKDLFile loads configuration from an explicit config file path.
// Returns (nil, nil) when no file exists. A relative pool root in the
// file resolves against the file's directory, not the working
// directory, so the same config works from any cwd.
func LoadKDLFile(kdlPath string) (*Config, error) {
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", kdlPath, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(kdlPath)
	if cfg != nil && cfg.Pool.Root != "" {
		var absRoot string
		if filepath.IsAbs(cfg.Pool.Root) {
			absRoot = cfg.Pool.Root
		} else {
			absRoot = filepath.Join(dir, cfg.Pool.Root)
		}
		cfg.Pool.Root = filepath.Clean(absRoot)
	} else if cfg != nil {
		absRoot, err := filepath.Abs(dir)
		if err == nil {
			cfg.Pool.Root = absRoot
		} else {
			cfg.Pool.Root = dir
		}
	}

	return cfg, nil
}

// parseKDL builds a Config from KDL text, starting from the built-in
// defaults so a file only has to name the settings it changes.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	var includes, excludes []string

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "pool":
			for _, cn := range n.Children { // pool { root "./rules" watch_mode true }
				assignSimpleString(cn, "root", func(v string) { cfg.Pool.Root = v })
				switch nodeName(cn) {
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Pool.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Pool.WatchDebounceMs = v
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Pool.RespectGitignore = b
					}
				case "max_document_kb":
					if v, ok := firstIntArg(cn); ok {
						cfg.Pool.MaxDocumentKB = v
					}
				}
			}
		case "detector":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "warning_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Detector.WarningThreshold = v
					}
				case "cache_ttl_minutes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Detector.CacheTTLMinutes = v
					}
				case "cache_max_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Detector.CacheMaxEntries = v
					}
				case "feature_cache_ttl_minutes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Detector.FeatureCacheTTLMinutes = v
					}
				case "feature_cache_max_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Detector.FeatureCacheMaxEntries = v
					}
				case "max_text_length":
					if v, ok := firstIntArg(cn); ok {
						cfg.Detector.MaxTextLength = v
					}
				}
			}
		case "exact":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "title_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.TitleWeight = v
					}
				case "description_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.DescriptionWeight = v
					}
				case "sql_pattern_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.SQLPatternWeight = v
					}
				case "category_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.CategoryWeight = v
					}
				case "severity_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.SeverityWeight = v
					}
				case "title_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.TitleThreshold = v
					}
				case "description_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.DescriptionThreshold = v
					}
				case "sql_pattern_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.SQLPatternThreshold = v
					}
				case "overall_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.OverallThreshold = v
					}
				case "min_matched_fields":
					if v, ok := firstIntArg(cn); ok {
						cfg.Exact.MinMatchedFields = v
					}
				case "prefilter_title_sim":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Exact.PrefilterTitleSim = v
					}
				case "cache":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Exact.CacheEnabled = b
					}
				case "cache_max_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Exact.CacheMaxEntries = v
					}
				}
			}
		case "semantic":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "concept_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.ConceptWeight = v
					}
				case "keyword_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.KeywordWeight = v
					}
				case "domain_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.DomainWeight = v
					}
				case "contextual_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.ContextualWeight = v
					}
				case "technical_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.TechnicalWeight = v
					}
				case "overall_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.OverallThreshold = v
					}
				case "min_concept_overlap":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Semantic.MinConceptOverlap = v
					}
				case "top_keywords":
					if v, ok := firstIntArg(cn); ok {
						cfg.Semantic.TopKeywords = v
					}
				}
			}
		case "structural":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "length_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Structural.LengthWeight = v
					}
				case "complexity_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Structural.ComplexityWeight = v
					}
				case "format_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Structural.FormatWeight = v
					}
				case "metadata_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Structural.MetadataWeight = v
					}
				case "overall_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Structural.OverallThreshold = v
					}
				case "recency_decay_days":
					if v, ok := firstIntArg(cn); ok {
						cfg.Structural.RecencyDecayDays = v
					}
				}
			}
		case "content":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "textual_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Content.TextualWeight = v
					}
				case "linguistic_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Content.LinguisticWeight = v
					}
				case "semantic_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Content.SemanticWeight = v
					}
				case "structural_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Content.StructuralWeight = v
					}
				case "overall_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Content.OverallThreshold = v
					}
				case "ngram_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Content.NGramSize = v
					}
				case "ngram_min_freq":
					if v, ok := firstIntArg(cn); ok {
						cfg.Content.NGramMinFreq = v
					}
				case "batch_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Content.BatchSize = v
					}
				case "max_key_items":
					if v, ok := firstIntArg(cn); ok {
						cfg.Content.MaxKeyItems = v
					}
				}
			}
		case "include":
			includes = append(includes, collectStringArgs(n)...)
		case "exclude":
			excludes = append(excludes, collectStringArgs(n)...)
		}
	}

	// Patterns named in the file replace the built-in defaults entirely.
	// A file that wants the defaults plus extras must list them.
	if len(includes) > 0 {
		cfg.Include = includes
	}
	if len(excludes) > 0 {
		cfg.Exclude = excludes
	}

	return cfg, nil
}

// Helper functions leveraging the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		log.Printf("WARNING: invalid numeric value for '%s' in KDL config, expected number but got %T", nodeName(n), n.Arguments[0].Value)
		return 0, false
	}
}

// collectStringArgs gathers strings from either inline arguments
// (include "a" "b") or block format (include { "a"; "b" }). In block
// format each string is a child node whose name is the string value.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
