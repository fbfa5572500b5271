package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/detector"
	"github.com/quailbyte/ruledup/internal/types"

	"github.com/urfave/cli/v2"
)

// poolEdge is one above-threshold similarity between two pool rules,
// recorded once per unordered pair.
type poolEdge struct {
	A          string              `json:"a"`
	B          string              `json:"b"`
	Similarity float64             `json:"similarity"`
	Type       types.DuplicateType `json:"type"`
}

// ruleCluster is a connected group of mutually similar rules.
type ruleCluster struct {
	Rules         []string   `json:"rules"`
	Pairs         []poolEdge `json:"pairs"`
	MaxSimilarity float64    `json:"max_similarity"`
}

// ScanReport is the scan command's JSON output
type ScanReport struct {
	Timestamp time.Time     `json:"timestamp"`
	Root      string        `json:"root"`
	PoolSize  int           `json:"pool_size"`
	Threshold float64       `json:"threshold"`
	Clusters  []ruleCluster `json:"clusters"`
	ElapsedMs float64       `json:"elapsed_ms"`
}

// scanCommand sweeps the pool against itself and reports duplicate
// clusters.
func scanCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	threshold := c.Float64("threshold")
	if threshold == 0 {
		threshold = cfg.Detector.WarningThreshold
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("invalid threshold %v: must be between 0.0 and 1.0", threshold)
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

	start := time.Now()
	edges := sweepPool(det, rules, threshold)
	clusters := buildClusters(edges)
	elapsed := time.Since(start)

	if c.Bool("json") {
		return outputScanJSON(cfg, len(rules), threshold, clusters, elapsed)
	}
	return outputScanText(cfg, rules, threshold, clusters, elapsed)
}

// sweepPool checks every rule against the rest of the pool and collects
// each above-threshold pair once. The pool is rebuilt without the
// candidate for every check so the exact stage cannot short-circuit on
// a self match.
func sweepPool(det *detector.Detector, rules []types.Rule, threshold float64) []poolEdge {
	seen := make(map[[2]string]bool)
	var edges []poolEdge

	others := make([]types.Rule, 0, len(rules))
	for i, rule := range rules {
		others = others[:0]
		others = append(others, rules[:i]...)
		others = append(others, rules[i+1:]...)
		det.LoadExistingRules(others)

		result := det.CheckDuplicate(rule)
		for _, ref := range result.MatchedRules {
			if ref.Similarity < threshold {
				continue
			}
			key := edgeKey(rule.ID, ref.ID)
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, poolEdge{
				A:          key[0],
				B:          key[1],
				Similarity: ref.Similarity,
				Type:       result.DuplicateType,
			})
		}
	}

	return edges
}

// edgeKey orders a pair of rule ids so each unordered pair has one key.
func edgeKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// buildClusters groups rules connected by above-threshold pairs into
// clusters, largest similarity first.
func buildClusters(edges []poolEdge) []ruleCluster {
	parent := make(map[string]string, len(edges)*2)
	find := func(x string) string {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for _, e := range edges {
		if _, ok := parent[e.A]; !ok {
			parent[e.A] = e.A
		}
		if _, ok := parent[e.B]; !ok {
			parent[e.B] = e.B
		}
		ra, rb := find(e.A), find(e.B)
		if ra != rb {
			parent[rb] = ra
		}
	}

	groups := make(map[string]*ruleCluster)
	for _, e := range edges {
		root := find(e.A)
		cl := groups[root]
		if cl == nil {
			cl = &ruleCluster{}
			groups[root] = cl
		}
		cl.Pairs = append(cl.Pairs, e)
		if e.Similarity > cl.MaxSimilarity {
			cl.MaxSimilarity = e.Similarity
		}
	}

	clusters := make([]ruleCluster, 0, len(groups))
	for _, cl := range groups {
		members := make(map[string]struct{}, len(cl.Pairs)*2)
		for _, e := range cl.Pairs {
			members[e.A] = struct{}{}
			members[e.B] = struct{}{}
		}
		cl.Rules = make([]string, 0, len(members))
		for id := range members {
			cl.Rules = append(cl.Rules, id)
		}
		sort.Strings(cl.Rules)
		clusters = append(clusters, *cl)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].MaxSimilarity != clusters[j].MaxSimilarity {
			return clusters[i].MaxSimilarity > clusters[j].MaxSimilarity
		}
		return clusters[i].Rules[0] < clusters[j].Rules[0]
	})

	return clusters
}

// outputScanJSON outputs the scan report as JSON
func outputScanJSON(cfg *config.Config, poolSize int, threshold float64, clusters []ruleCluster, elapsed time.Duration) error {
	report := ScanReport{
		Timestamp: time.Now(),
		Root:      cfg.Pool.Root,
		PoolSize:  poolSize,
		Threshold: threshold,
		Clusters:  clusters,
		ElapsedMs: float64(elapsed.Microseconds()) / 1000.0,
	}
	if report.Clusters == nil {
		report.Clusters = []ruleCluster{}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// outputScanText outputs the scan report as formatted text
func outputScanText(cfg *config.Config, rules []types.Rule, threshold float64, clusters []ruleCluster, elapsed time.Duration) error {
	fmt.Println("Duplicate Rule Scan")
	fmt.Println("===================")
	fmt.Println()

	fmt.Printf("Pool:      %d rules from %s\n", len(rules), displayPath(cfg.Pool.Root))
	fmt.Printf("Threshold: %.2f\n", threshold)
	fmt.Println()

	if len(clusters) == 0 {
		fmt.Println("No duplicate clusters found above the threshold.")
		fmt.Printf("\nScanned in %.1fms\n", float64(elapsed.Microseconds())/1000.0)
		return nil
	}

	involved := 0
	for _, cl := range clusters {
		involved += len(cl.Rules)
	}
	fmt.Printf("Duplicate clusters: %d (%d rules involved)\n", len(clusters), involved)

	byID := make(map[string]types.Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}

	for i, cl := range clusters {
		fmt.Printf("\nCluster %d: %d rules, max similarity %.0f%%\n", i+1, len(cl.Rules), cl.MaxSimilarity*100)
		for _, id := range cl.Rules {
			if r, ok := byID[id]; ok {
				fmt.Printf("  %s  %s (%s)\n", id, r.Title, r.Category)
			} else {
				fmt.Printf("  %s\n", id)
			}
		}
		fmt.Println("  Pairs:")
		for _, e := range cl.Pairs {
			fmt.Printf("    %s ~ %s  %.0f%% %s\n", e.A, e.B, e.Similarity*100, e.Type)
		}
	}

	fmt.Printf("\nScanned in %.1fms\n", float64(elapsed.Microseconds())/1000.0)
	return nil
}
