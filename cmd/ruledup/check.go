package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/quailbyte/ruledup/internal/detector"
	"github.com/quailbyte/ruledup/internal/ruledoc"
	"github.com/quailbyte/ruledup/internal/types"

	"github.com/urfave/cli/v2"
)

// CheckReport is the check command's JSON output
type CheckReport struct {
	Timestamp   time.Time             `json:"timestamp"`
	Source      string                `json:"source"`
	CandidateID string                `json:"candidate_id"`
	Title       string                `json:"title"`
	Category    types.Category        `json:"category"`
	Severity    types.Severity        `json:"severity"`
	PoolSize    int                   `json:"pool_size"`
	ElapsedMs   float64               `json:"elapsed_ms"`
	Result      types.DuplicateResult `json:"result"`
}

// checkCommand reads a candidate document, loads the pool, and prints
// the detection verdict.
func checkCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	candidate, source, err := readCandidate(c)
	if err != nil {
		return err
	}

	rules, skipped, err := scanPool(cfg)
	if err != nil {
		return err
	}
	warnSkipped(skipped)

	// A candidate already in the pool is compared against the other
	// rules, not against itself
	kept := make([]types.Rule, 0, len(rules))
	for _, r := range rules {
		if r.ID == candidate.ID {
			continue
		}
		kept = append(kept, r)
	}

	det, err := detector.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer det.Close()
	det.LoadExistingRules(kept)

	start := time.Now()
	result := det.CheckDuplicate(candidate)
	elapsed := time.Since(start)

	if c.Bool("json") {
		return outputCheckJSON(candidate, source, result, len(kept), elapsed)
	}
	return outputCheckText(candidate, source, result, cfg.Pool.Root, len(kept), elapsed)
}

// readCandidate parses the rule document named by the first argument,
// or stdin when no argument is given.
func readCandidate(c *cli.Context) (types.Rule, string, error) {
	if c.NArg() > 1 {
		return types.Rule{}, "", errors.New("usage: ruledup check [document.md]")
	}

	if c.NArg() == 1 {
		path := c.Args().First()
		data, err := os.ReadFile(path)
		if err != nil {
			return types.Rule{}, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		rule, err := ruledoc.Parse(path, data)
		if err != nil {
			return types.Rule{}, "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return rule, path, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return types.Rule{}, "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return types.Rule{}, "", errors.New("no document given: pass a path or pipe one on stdin")
	}
	rule, err := ruledoc.Parse("stdin.md", data)
	if err != nil {
		return types.Rule{}, "", fmt.Errorf("failed to parse stdin: %w", err)
	}
	return rule, "stdin", nil
}

// outputCheckJSON outputs the check verdict as JSON
func outputCheckJSON(rule types.Rule, source string, result types.DuplicateResult, poolSize int, elapsed time.Duration) error {
	report := CheckReport{
		Timestamp:   time.Now(),
		Source:      source,
		CandidateID: rule.ID,
		Title:       rule.Title,
		Category:    rule.Category,
		Severity:    rule.Severity,
		PoolSize:    poolSize,
		ElapsedMs:   float64(elapsed.Microseconds()) / 1000.0,
		Result:      result,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// outputCheckText outputs the check verdict as formatted text
func outputCheckText(rule types.Rule, source string, result types.DuplicateResult, root string, poolSize int, elapsed time.Duration) error {
	fmt.Println("Duplicate Check")
	fmt.Println("===============")
	fmt.Println()

	fmt.Printf("Candidate: %s  %s (%s/%s)\n", rule.ID, rule.Title, rule.Category, rule.Severity)
	fmt.Printf("Source:    %s\n", displayPath(source))
	fmt.Printf("Pool:      %d rules from %s\n", poolSize, displayPath(root))
	fmt.Println()

	switch {
	case result.IsDuplicate:
		fmt.Printf("Verdict: DUPLICATE (%s, similarity %.0f%%, confidence %.0f%%)\n",
			result.DuplicateType, result.Similarity*100, result.Confidence*100)
	case len(result.MatchedRules) > 0:
		fmt.Printf("Verdict: NOT A DUPLICATE (nearest %s match %.0f%%, confidence %.0f%%)\n",
			result.DuplicateType, result.Similarity*100, result.Confidence*100)
	default:
		fmt.Printf("Verdict: NOT A DUPLICATE (confidence %.0f%%)\n", result.Confidence*100)
	}
	fmt.Printf("Reason:  %s\n", result.Reason)

	if len(result.MatchedRules) > 0 {
		fmt.Println("\nMatched rules:")
		for _, ref := range result.MatchedRules {
			fmt.Printf("  [%.0f%%] %s  %s (%s)\n", ref.Similarity*100, ref.ID, ref.Title, ref.Category)
		}
	}

	fmt.Printf("\nChecked in %.1fms\n", float64(elapsed.Microseconds())/1000.0)
	return nil
}
