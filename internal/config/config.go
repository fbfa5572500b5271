package config

import (
	"os"
	"path/filepath"

	"github.com/quailbyte/ruledup/internal/types"
)

// Default thresholds for the detection waterfall. These values are the
// tuned operating point of the engine; configs may override them but the
// constants are the single source for both code and config parsing.
const (
	DefaultWarningThreshold  = 0.7
	DefaultExactThreshold    = 0.7
	DefaultSemanticThreshold = 0.6
	DefaultStructThreshold   = 0.6
	DefaultContentThreshold  = 0.5
)

type Config struct {
	Version    int
	Pool       Pool
	Detector   Detector
	Exact      Exact
	Semantic   Semantic
	Structural Structural
	Content    Content
	Include    []string
	Exclude    []string
}

type Pool struct {
	Root             string
	WatchMode        bool // Rescan the rules directory when documents change
	WatchDebounceMs  int  // Debounce time for file change events
	RespectGitignore bool // Treat .gitignore patterns in the root as exclusions
	MaxDocumentKB    int  // Documents larger than this are skipped by the scanner
}

type Detector struct {
	WarningThreshold float64 // Similarity at or above this makes IsDuplicate true

	// Result cache: keyed by (rule id, title, category)
	CacheTTLMinutes int // Entry lifetime (default 30 minutes)
	CacheMaxEntries int // Hard cap, oldest-inserted evicted first

	// Feature bundle caches, one per matcher
	FeatureCacheTTLMinutes int
	FeatureCacheMaxEntries int

	MaxTextLength int // Rune cap on text fields before feature extraction
}

type Exact struct {
	// Field weights for the weighted similarity sum
	TitleWeight       float64
	DescriptionWeight float64
	SQLPatternWeight  float64
	CategoryWeight    float64
	SeverityWeight    float64

	// Per-field thresholds for counting a field as matched
	TitleThreshold       float64
	DescriptionThreshold float64
	SQLPatternThreshold  float64

	OverallThreshold  float64 // Keep candidates at or above this weighted sum
	MinMatchedFields  int     // And with at least this many matched fields
	PrefilterTitleSim float64 // Title screen for candidates sharing no metadata
	CacheEnabled      bool    // Result cache is optional for this matcher
	CacheMaxEntries   int
}

type Semantic struct {
	ConceptWeight    float64
	KeywordWeight    float64
	DomainWeight     float64
	ContextualWeight float64
	TechnicalWeight  float64

	OverallThreshold  float64
	MinConceptOverlap float64 // Concept Jaccard floor
	TopKeywords       int     // Top-N frequency keywords kept per rule
}

type Structural struct {
	LengthWeight     float64
	ComplexityWeight float64
	FormatWeight     float64
	MetadataWeight   float64

	OverallThreshold float64
	RecencyDecayDays int // Window for the created-at recency similarity
}

type Content struct {
	TextualWeight    float64
	LinguisticWeight float64
	SemanticWeight   float64
	StructuralWeight float64

	OverallThreshold float64
	NGramSize        int // Character n-gram size
	NGramMinFreq     int // Minimum frequency kept after extraction (1 = keep all)
	BatchSize        int // Bounded concurrent candidate batches (1 = sequential)
	MaxKeyItems      int // Cap on key differences/similarities lists
}

// Default returns the engine's built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Pool: Pool{
			WatchMode:        false,
			WatchDebounceMs:  300,
			RespectGitignore: true,
			MaxDocumentKB:    4096,
		},
		Detector: Detector{
			WarningThreshold:       DefaultWarningThreshold,
			CacheTTLMinutes:        30,
			CacheMaxEntries:        1000,
			FeatureCacheTTLMinutes: 15,
			FeatureCacheMaxEntries: 2000,
			MaxTextLength:          types.DefaultMaxTextLength,
		},
		Exact: Exact{
			TitleWeight:       0.35,
			DescriptionWeight: 0.25,
			SQLPatternWeight:  0.25,
			CategoryWeight:    0.10,
			SeverityWeight:    0.05,

			TitleThreshold:       0.8,
			DescriptionThreshold: 0.75,
			SQLPatternThreshold:  0.85,

			OverallThreshold:  DefaultExactThreshold,
			MinMatchedFields:  2,
			PrefilterTitleSim: 0.5,
			CacheEnabled:      true,
			CacheMaxEntries:   500,
		},
		Semantic: Semantic{
			ConceptWeight:    0.30,
			KeywordWeight:    0.25,
			DomainWeight:     0.20,
			ContextualWeight: 0.15,
			TechnicalWeight:  0.10,

			OverallThreshold:  DefaultSemanticThreshold,
			MinConceptOverlap: 0.4,
			TopKeywords:       10,
		},
		Structural: Structural{
			LengthWeight:     0.30,
			ComplexityWeight: 0.20,
			FormatWeight:     0.20,
			MetadataWeight:   0.30,

			OverallThreshold: DefaultStructThreshold,
			RecencyDecayDays: 365,
		},
		Content: Content{
			TextualWeight:    0.30,
			LinguisticWeight: 0.20,
			SemanticWeight:   0.30,
			StructuralWeight: 0.20,

			OverallThreshold: DefaultContentThreshold,
			NGramSize:        2,
			NGramMinFreq:     1,
			BatchSize:        4,
			MaxKeyItems:      5,
		},
		Include: []string{"**/*.md"},
		Exclude: []string{
			// Git metadata and hidden directories
			"**/.git/**",
			"**/.*/**",

			// Dependency trees that sometimes live next to rule docs
			"**/node_modules/**",
			"**/vendor/**",

			// Non-rule markdown
			"**/README.md",
			"**/readme.md",
			"**/_*.md", // underscore-prefixed drafts
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads configuration in three layers: the built-in
// defaults, a global ~/.ruledup.kdl if present, and the project's
// .ruledup.kdl (the file named by path when it exists, otherwise one
// found in rootDir). Later layers override earlier ones; exclusion
// patterns accumulate across layers. Missing files are not errors.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Step 1: global base config from the home directory (if present)
	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: project config, preferring an explicitly named file
	var projectConfig *Config
	if path != "" {
		fileCfg, err := LoadKDLFile(path)
		if err != nil {
			return nil, err
		}
		projectConfig = fileCfg
	}
	if projectConfig == nil {
		if kdlCfg, err := LoadKDL(searchDir); err == nil && kdlCfg != nil {
			projectConfig = kdlCfg
		} else if err != nil {
			return nil, err
		}
	}

	// Step 3: merge (project overrides base, exclusions union)
	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		// A global config never pins the pool to the home directory;
		// the pool root always follows the project being checked.
		if abs, err := filepath.Abs(searchDir); err == nil {
			baseConfig.Pool.Root = abs
		} else {
			baseConfig.Pool.Root = searchDir
		}
		return baseConfig, nil
	}

	cfg := Default()
	if cfg.Pool.Root == "" {
		if abs, err := filepath.Abs(searchDir); err == nil {
			cfg.Pool.Root = abs
		} else {
			cfg.Pool.Root = searchDir
		}
	}
	return cfg, nil
}

// mergeConfigs merges a base config with a project config.
// Project config takes precedence, but base exclusions are preserved.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		merged.Exclude = dedupePatterns(append(append([]string{}, base.Exclude...), project.Exclude...))
	}

	// Project include patterns override base completely when specified
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// dedupePatterns removes duplicate glob patterns preserving first-seen
// order so merged configs stay deterministic.
func dedupePatterns(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
