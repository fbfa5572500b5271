package config

import (
	"errors"
	"fmt"
	"math"

	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
)

// weightSumTolerance is how far a matcher's weight sum may drift from 1.0
// before the config is rejected. Covers float literals like 0.35+0.25+...
const weightSumTolerance = 1e-6

// Validate checks the whole configuration and fails fast on the first
// invalid section. Invalid weights or thresholds must never reach a
// matcher: detection calls assume validated config.
func (c *Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return ruleduperrors.NewConfigError("detector", "", err)
	}
	if err := c.Exact.Validate(); err != nil {
		return ruleduperrors.NewConfigError("exact", "", err)
	}
	if err := c.Semantic.Validate(); err != nil {
		return ruleduperrors.NewConfigError("semantic", "", err)
	}
	if err := c.Structural.Validate(); err != nil {
		return ruleduperrors.NewConfigError("structural", "", err)
	}
	if err := c.Content.Validate(); err != nil {
		return ruleduperrors.NewConfigError("content", "", err)
	}
	if c.Pool.WatchDebounceMs < 0 {
		return ruleduperrors.NewConfigError("pool", fmt.Sprintf("%d", c.Pool.WatchDebounceMs),
			errors.New("WatchDebounceMs must not be negative"))
	}
	if c.Pool.MaxDocumentKB < 0 {
		return ruleduperrors.NewConfigError("pool", fmt.Sprintf("%d", c.Pool.MaxDocumentKB),
			errors.New("MaxDocumentKB must not be negative"))
	}
	return nil
}

// Validate checks detector-level settings.
func (d Detector) Validate() error {
	if err := checkUnit("WarningThreshold", d.WarningThreshold); err != nil {
		return err
	}
	if d.CacheTTLMinutes <= 0 {
		return fmt.Errorf("CacheTTLMinutes must be positive, got %d", d.CacheTTLMinutes)
	}
	if d.CacheMaxEntries <= 0 {
		return fmt.Errorf("CacheMaxEntries must be positive, got %d", d.CacheMaxEntries)
	}
	if d.FeatureCacheTTLMinutes <= 0 {
		return fmt.Errorf("FeatureCacheTTLMinutes must be positive, got %d", d.FeatureCacheTTLMinutes)
	}
	if d.FeatureCacheMaxEntries <= 0 {
		return fmt.Errorf("FeatureCacheMaxEntries must be positive, got %d", d.FeatureCacheMaxEntries)
	}
	if d.MaxTextLength <= 0 {
		return fmt.Errorf("MaxTextLength must be positive, got %d", d.MaxTextLength)
	}
	return nil
}

// Validate checks the exact matcher's weights and thresholds.
func (e Exact) Validate() error {
	if err := checkWeights(map[string]float64{
		"TitleWeight":       e.TitleWeight,
		"DescriptionWeight": e.DescriptionWeight,
		"SQLPatternWeight":  e.SQLPatternWeight,
		"CategoryWeight":    e.CategoryWeight,
		"SeverityWeight":    e.SeverityWeight,
	}); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"TitleThreshold":       e.TitleThreshold,
		"DescriptionThreshold": e.DescriptionThreshold,
		"SQLPatternThreshold":  e.SQLPatternThreshold,
		"OverallThreshold":     e.OverallThreshold,
		"PrefilterTitleSim":    e.PrefilterTitleSim,
	} {
		if err := checkUnit(name, v); err != nil {
			return err
		}
	}
	if e.MinMatchedFields < 0 {
		return fmt.Errorf("MinMatchedFields must not be negative, got %d", e.MinMatchedFields)
	}
	if e.CacheEnabled && e.CacheMaxEntries <= 0 {
		return fmt.Errorf("CacheMaxEntries must be positive when cache is enabled, got %d", e.CacheMaxEntries)
	}
	return nil
}

// Validate checks the semantic matcher's weights and thresholds.
func (s Semantic) Validate() error {
	if err := checkWeights(map[string]float64{
		"ConceptWeight":    s.ConceptWeight,
		"KeywordWeight":    s.KeywordWeight,
		"DomainWeight":     s.DomainWeight,
		"ContextualWeight": s.ContextualWeight,
		"TechnicalWeight":  s.TechnicalWeight,
	}); err != nil {
		return err
	}
	if err := checkUnit("OverallThreshold", s.OverallThreshold); err != nil {
		return err
	}
	if err := checkUnit("MinConceptOverlap", s.MinConceptOverlap); err != nil {
		return err
	}
	if s.TopKeywords <= 0 {
		return fmt.Errorf("TopKeywords must be positive, got %d", s.TopKeywords)
	}
	return nil
}

// Validate checks the structural matcher's weights and thresholds.
func (s Structural) Validate() error {
	if err := checkWeights(map[string]float64{
		"LengthWeight":     s.LengthWeight,
		"ComplexityWeight": s.ComplexityWeight,
		"FormatWeight":     s.FormatWeight,
		"MetadataWeight":   s.MetadataWeight,
	}); err != nil {
		return err
	}
	if err := checkUnit("OverallThreshold", s.OverallThreshold); err != nil {
		return err
	}
	if s.RecencyDecayDays <= 0 {
		return fmt.Errorf("RecencyDecayDays must be positive, got %d", s.RecencyDecayDays)
	}
	return nil
}

// Validate checks the content matcher's weights and thresholds.
func (c Content) Validate() error {
	if err := checkWeights(map[string]float64{
		"TextualWeight":    c.TextualWeight,
		"LinguisticWeight": c.LinguisticWeight,
		"SemanticWeight":   c.SemanticWeight,
		"StructuralWeight": c.StructuralWeight,
	}); err != nil {
		return err
	}
	if err := checkUnit("OverallThreshold", c.OverallThreshold); err != nil {
		return err
	}
	if c.NGramSize <= 0 {
		return fmt.Errorf("NGramSize must be positive, got %d", c.NGramSize)
	}
	if c.NGramMinFreq < 1 {
		return fmt.Errorf("NGramMinFreq must be at least 1, got %d", c.NGramMinFreq)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BatchSize must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxKeyItems < 1 {
		return fmt.Errorf("MaxKeyItems must be at least 1, got %d", c.MaxKeyItems)
	}
	return nil
}

// checkUnit rejects values outside [0,1].
func checkUnit(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("%s must be in [0,1], got %v", name, v)
	}
	return nil
}

// checkWeights rejects negative weights and weight sets that do not sum
// to 1. Components assume a convex combination; silently renormalizing
// at call time would hide config mistakes.
func checkWeights(weights map[string]float64) error {
	sum := 0.0
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%s must not be negative, got %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	return nil
}
