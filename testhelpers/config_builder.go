package testhelpers

import (
	"github.com/quailbyte/ruledup/internal/config"
)

// ConfigBuilder provides a fluent API for building test configurations.
// It starts from the engine defaults so weight sets stay valid unless a
// test breaks them on purpose.
//
//	cfg := testhelpers.NewConfig().
//		WithPoolRoot(dir).
//		WithWarningThreshold(0.9).
//		Build()
type ConfigBuilder struct {
	cfg *config.Config
}

func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: config.Default()}
}

func (b *ConfigBuilder) WithPoolRoot(root string) *ConfigBuilder {
	b.cfg.Pool.Root = root
	return b
}

func (b *ConfigBuilder) WithWarningThreshold(v float64) *ConfigBuilder {
	b.cfg.Detector.WarningThreshold = v
	return b
}

func (b *ConfigBuilder) WithCacheMaxEntries(n int) *ConfigBuilder {
	b.cfg.Detector.CacheMaxEntries = n
	return b
}

func (b *ConfigBuilder) WithMaxDocumentKB(n int) *ConfigBuilder {
	b.cfg.Pool.MaxDocumentKB = n
	return b
}

// WithIncludes replaces the include patterns.
func (b *ConfigBuilder) WithIncludes(patterns ...string) *ConfigBuilder {
	b.cfg.Include = append([]string{}, patterns...)
	return b
}

// WithExcludes adds exclusion patterns on top of the defaults.
func (b *ConfigBuilder) WithExcludes(patterns ...string) *ConfigBuilder {
	b.cfg.Exclude = append(b.cfg.Exclude, patterns...)
	return b
}

func (b *ConfigBuilder) Build() *config.Config {
	return b.cfg
}
