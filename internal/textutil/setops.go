package textutil

import "sort"

// ToSet builds a string set from a slice.
func ToSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// SetToSorted returns the set's members in sorted order.
func SetToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Jaccard computes |a∩b| / |a∪b| for two sets. Two empty sets score 1.0:
// absence agreeing with absence is a perfect match for our purposes, and
// this keeps the measure symmetric and total.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// JaccardStrings is Jaccard over two token slices.
func JaccardStrings(a, b []string) float64 {
	return Jaccard(ToSet(a), ToSet(b))
}

// OverlapStrict computes |a∩b| / |a∪b| but scores 0.0 when either set is
// empty, including both-empty. Filters that demand shared evidence
// (e.g. "at least one shared concept") use this so two featureless rules
// never look related.
func OverlapStrict(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	return Jaccard(a, b)
}

// Intersection returns the sorted members present in both sets.
func Intersection(a, b map[string]struct{}) []string {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var out []string
	for k := range small {
		if _, ok := large[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// IntersectionCount returns |a∩b| without allocating the members.
func IntersectionCount(a, b map[string]struct{}) int {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	n := 0
	for k := range small {
		if _, ok := large[k]; ok {
			n++
		}
	}
	return n
}

// FreqJaccard computes weighted Jaccard over two frequency maps:
// sum(min(fa,fb)) / sum(max(fa,fb)). Degenerates to plain Jaccard when
// all frequencies are 1. Both empty scores 1.0, one empty scores 0.0.
func FreqJaccard(a, b map[string]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	minSum, maxSum := 0, 0
	for k, fa := range a {
		if fb, ok := b[k]; ok {
			if fa < fb {
				minSum += fa
				maxSum += fb
			} else {
				minSum += fb
				maxSum += fa
			}
		} else {
			maxSum += fa
		}
	}
	for k, fb := range b {
		if _, ok := a[k]; !ok {
			maxSum += fb
		}
	}
	if maxSum == 0 {
		return 0.0
	}
	return float64(minSum) / float64(maxSum)
}
