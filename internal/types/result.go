package types

// StrategyName identifies one of the waterfall's similarity strategies.
type StrategyName string

const (
	StrategyExact      StrategyName = "exact"
	StrategySemantic   StrategyName = "semantic"
	StrategyStructural StrategyName = "structural"
	StrategyContent    StrategyName = "content"
)

func (s StrategyName) String() string { return string(s) }

// DuplicateType is the public verdict taxonomy. Content-strategy wins are
// reported as DuplicateSemantic; the true strategy stays visible in
// MatchDetails and Reason.
type DuplicateType string

const (
	DuplicateExact      DuplicateType = "exact"
	DuplicateSemantic   DuplicateType = "semantic"
	DuplicateStructural DuplicateType = "structural"
	DuplicateNone       DuplicateType = "none"
)

func (d DuplicateType) String() string { return string(d) }

// ForStrategy maps a winning strategy to its public duplicate type.
func ForStrategy(s StrategyName) DuplicateType {
	switch s {
	case StrategyExact:
		return DuplicateExact
	case StrategySemantic, StrategyContent:
		return DuplicateSemantic
	case StrategyStructural:
		return DuplicateStructural
	default:
		return DuplicateNone
	}
}

// MatchStrength is the exact matcher's qualitative bucket.
type MatchStrength string

const (
	StrengthVeryStrong MatchStrength = "very_strong"
	StrengthStrong     MatchStrength = "strong"
	StrengthModerate   MatchStrength = "moderate"
	StrengthWeak       MatchStrength = "weak"
)

// MatchResult is one matcher's score for one pool candidate. Produced
// fresh per query and never persisted.
type MatchResult struct {
	RuleID       string            `json:"rule_id"`
	RuleTitle    string            `json:"rule_title,omitempty"`
	Similarity   float64           `json:"similarity"`
	Confidence   float64           `json:"confidence"`
	Explanation  string            `json:"explanation,omitempty"`
	MatchDetails map[string]string `json:"match_details,omitempty"`
}

// IsValid reports whether scores sit inside [0,1].
func (m MatchResult) IsValid() bool {
	return m.Similarity >= 0 && m.Similarity <= 1 &&
		m.Confidence >= 0 && m.Confidence <= 1
}

// DuplicateResult is the single verdict returned to callers. Constructed
// once per detection call and not mutated afterward.
type DuplicateResult struct {
	IsDuplicate   bool                           `json:"is_duplicate"`
	Similarity    float64                        `json:"similarity"`
	DuplicateType DuplicateType                  `json:"duplicate_type"`
	Reason        string                         `json:"reason"`
	Confidence    float64                        `json:"confidence"`
	MatchedRules  []RuleRef                      `json:"matched_rules,omitempty"`
	MatchDetails  map[StrategyName][]MatchResult `json:"match_details,omitempty"`
}

// NotDuplicate builds the empty verdict used when no strategy fires.
func NotDuplicate(reason string) DuplicateResult {
	return DuplicateResult{
		IsDuplicate:   false,
		Similarity:    0,
		DuplicateType: DuplicateNone,
		Reason:        reason,
		Confidence:    0.9,
	}
}

// DegradedResult builds the low-confidence fallback returned when the
// pipeline itself fails. Detection must never block the caller's workflow,
// so failures degrade instead of propagating.
func DegradedResult(msg string) DuplicateResult {
	return DuplicateResult{
		IsDuplicate:   false,
		Similarity:    0,
		DuplicateType: DuplicateNone,
		Reason:        "detection failed: " + msg,
		Confidence:    0.3,
	}
}
