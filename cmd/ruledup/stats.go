package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/detector"

	"github.com/urfave/cli/v2"
)

// StatsReport represents the stats command output for JSON
type StatsReport struct {
	Timestamp time.Time              `json:"timestamp"`
	Root      string                 `json:"root"`
	Skipped   int                    `json:"skipped,omitempty"`
	Stats     detector.DetectorStats `json:"stats"`
	Health    detector.HealthStatus  `json:"health"`
}

// statsCommand shows pool composition, cache statistics, and detector
// health for the configured rule pool.
func statsCommand(c *cli.Context) error {
	verbose := c.Bool("verbose")

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	rules, skipped, err := scanPool(cfg)
	if err != nil {
		return err
	}
	warnSkipped(skipped)

	det, err := detector.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer det.Close()
	det.LoadExistingRules(rules)

	stats := det.Stats()
	health := det.HealthCheck()

	if c.Bool("json") {
		return outputStatsJSON(cfg, len(skipped), stats, health)
	}
	return outputStatsHuman(cfg, len(skipped), stats, health, verbose)
}

// outputStatsJSON outputs pool statistics as JSON
func outputStatsJSON(cfg *config.Config, skipped int, stats detector.DetectorStats, health detector.HealthStatus) error {
	report := StatsReport{
		Timestamp: time.Now(),
		Root:      cfg.Pool.Root,
		Skipped:   skipped,
		Stats:     stats,
		Health:    health,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// outputStatsHuman outputs pool statistics in human-readable format
func outputStatsHuman(cfg *config.Config, skipped int, stats detector.DetectorStats, health detector.HealthStatus, verbose bool) error {
	fmt.Println("Rule Pool Statistics")
	fmt.Println("====================")
	fmt.Println()

	if health.Status == detector.StatusHealthy {
		fmt.Println("Status: Healthy")
	} else {
		fmt.Println("Status: Degraded")
		for _, issue := range health.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}

	fmt.Println("\nPool:")
	fmt.Printf("  Root:             %s\n", displayPath(cfg.Pool.Root))
	fmt.Printf("  Rules loaded:     %d\n", stats.PoolSize)
	if skipped > 0 {
		fmt.Printf("  Skipped:          %d (unparseable documents)\n", skipped)
	}
	if len(stats.Categories) > 0 {
		fmt.Println("  Categories:")
		for _, cat := range sortedKeys(stats.Categories) {
			fmt.Printf("    %-16s %d\n", cat, stats.Categories[cat])
		}
	}

	// Counters only accumulate inside one process, so a fresh stats run
	// reports zeros here
	if stats.Checks > 0 || verbose {
		fmt.Println("\nDetection counters:")
		fmt.Printf("  Checks:           %d\n", stats.Checks)
		fmt.Printf("  Duplicates:       %d\n", stats.Duplicates)
		fmt.Printf("  Degraded:         %d\n", stats.Degraded)
		for _, name := range sortedKeys(stats.StrategyFires) {
			fmt.Printf("  Fires (%s):  %d\n", name, stats.StrategyFires[name])
		}
	}

	if stats.ResultCache != nil {
		fmt.Println("\nResult cache:")
		printCacheStats("  ", *stats.ResultCache, verbose)
	}

	if verbose && len(stats.StrategyCaches) > 0 {
		for _, name := range sortedKeys(stats.StrategyCaches) {
			fmt.Printf("\n%s feature cache:\n", name)
			printCacheStats("  ", *stats.StrategyCaches[name], verbose)
		}
	}

	return nil
}

// printCacheStats writes one cache's statistics with the given indent.
func printCacheStats(indent string, s cache.Stats, verbose bool) {
	fmt.Printf("%sEntries:          %d / %d\n", indent, s.Entries, s.MaxEntries)
	fmt.Printf("%sTTL:              %s\n", indent, s.TTL)
	fmt.Printf("%sHit rate:         %.1f%% (%s)\n", indent, s.HitRate*100, s.Status)
	if verbose {
		fmt.Printf("%sHits:             %d\n", indent, s.Hits)
		fmt.Printf("%sMisses:           %d\n", indent, s.Misses)
		fmt.Printf("%sEvictions:        %d\n", indent, s.Evictions)
	}
}

// sortedKeys returns map keys in ascending order for stable output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
