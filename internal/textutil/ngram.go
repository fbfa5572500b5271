package textutil

import "sort"

// WordFreq builds a token frequency map from Tokenize output.
func WordFreq(s string) map[string]int {
	tokens := Tokenize(s)
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}

// CharFreq builds a rune frequency map over normalized text. Spaces are
// skipped; they carry layout, not content.
func CharFreq(s string) map[string]int {
	freq := make(map[string]int)
	for _, r := range Normalize(s) {
		if r == ' ' {
			continue
		}
		freq[string(r)]++
	}
	return freq
}

// CharNGrams builds a character n-gram frequency map over the normalized
// text. n <= 0 is treated as 2. Shorter-than-n input yields the whole
// string as its only gram.
func CharNGrams(s string, n int) map[string]int {
	if n <= 0 {
		n = 2
	}
	runes := []rune(Normalize(s))
	freq := make(map[string]int)
	if len(runes) == 0 {
		return freq
	}
	if len(runes) <= n {
		freq[string(runes)] = 1
		return freq
	}
	for i := 0; i+n <= len(runes); i++ {
		freq[string(runes[i:i+n])]++
	}
	return freq
}

// PruneMinFreq drops entries below min from a frequency map, in place,
// and returns the map. Keeps n-gram maps bounded on long documents.
func PruneMinFreq(freq map[string]int, min int) map[string]int {
	if min <= 1 {
		return freq
	}
	for k, v := range freq {
		if v < min {
			delete(freq, k)
		}
	}
	return freq
}

// TopKByFreq returns the k highest-frequency keys, frequency descending,
// ties broken lexicographically so output is deterministic.
func TopKByFreq(freq map[string]int, k int) []string {
	if k <= 0 || len(freq) == 0 {
		return nil
	}
	keys := make([]string, 0, len(freq))
	for key := range freq {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
