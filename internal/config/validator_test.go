package config

import (
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidate_WeightSums(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		section string
	}{
		{
			name:    "exact weights do not sum to one",
			mutate:  func(c *Config) { c.Exact.TitleWeight = 0.9 },
			section: "exact",
		},
		{
			name:    "semantic weights do not sum to one",
			mutate:  func(c *Config) { c.Semantic.ConceptWeight = 0.5 },
			section: "semantic",
		},
		{
			name:    "structural weights do not sum to one",
			mutate:  func(c *Config) { c.Structural.LengthWeight = 0 },
			section: "structural",
		},
		{
			name:    "content weights do not sum to one",
			mutate:  func(c *Config) { c.Content.TextualWeight = 0.6 },
			section: "content",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Exact.TitleWeight = -0.35 },
			section: "exact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.section) {
				t.Errorf("error should name section %q, got %v", tt.section, err)
			}
		})
	}
}

func TestValidate_ThresholdRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"warning threshold above one", func(c *Config) { c.Detector.WarningThreshold = 1.5 }},
		{"warning threshold negative", func(c *Config) { c.Detector.WarningThreshold = -0.1 }},
		{"exact overall threshold above one", func(c *Config) { c.Exact.OverallThreshold = 2 }},
		{"semantic concept overlap negative", func(c *Config) { c.Semantic.MinConceptOverlap = -0.4 }},
		{"structural threshold above one", func(c *Config) { c.Structural.OverallThreshold = 1.01 }},
		{"content threshold above one", func(c *Config) { c.Content.OverallThreshold = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidate_Sizes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cache ttl", func(c *Config) { c.Detector.CacheTTLMinutes = 0 }},
		{"zero cache entries", func(c *Config) { c.Detector.CacheMaxEntries = 0 }},
		{"zero feature cache ttl", func(c *Config) { c.Detector.FeatureCacheTTLMinutes = 0 }},
		{"zero max text length", func(c *Config) { c.Detector.MaxTextLength = 0 }},
		{"negative matched fields", func(c *Config) { c.Exact.MinMatchedFields = -1 }},
		{"cache enabled without capacity", func(c *Config) { c.Exact.CacheEnabled = true; c.Exact.CacheMaxEntries = 0 }},
		{"zero top keywords", func(c *Config) { c.Semantic.TopKeywords = 0 }},
		{"zero recency decay", func(c *Config) { c.Structural.RecencyDecayDays = 0 }},
		{"zero ngram size", func(c *Config) { c.Content.NGramSize = 0 }},
		{"zero ngram min freq", func(c *Config) { c.Content.NGramMinFreq = 0 }},
		{"zero batch size", func(c *Config) { c.Content.BatchSize = 0 }},
		{"zero max key items", func(c *Config) { c.Content.MaxKeyItems = 0 }},
		{"negative watch debounce", func(c *Config) { c.Pool.WatchDebounceMs = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidate_CacheDisabledIgnoresCapacity(t *testing.T) {
	cfg := Default()
	cfg.Exact.CacheEnabled = false
	cfg.Exact.CacheMaxEntries = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled cache should not require capacity, got %v", err)
	}
}
