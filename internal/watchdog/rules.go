package watchdog

import (
	"fmt"
	"math/big"
)

// RuleResult is one triggered (name, message, severity) produced by the engine.
type RuleResult struct {
	RuleName string
	Message  string
	Severity Severity
}

// Rule is a pure, stateless mapping from an event to an optional (message, severity). Rules
// must never mutate the event or retain history between calls.
type Rule interface {
	// Name identifies the rule for rule-hit bookkeeping and logging.
	Name() string
	// Check returns ok=false when the rule does not fire for e.
	Check(e NormalizedEvent) (message string, severity Severity, ok bool)
}

// RuleEngine holds an ordered, immutable list of rules. Evaluation order determines the order
// of returned results, never their severities.
type RuleEngine struct {
	rules []Rule
}

// NewRuleEngine builds an engine from rules, preserving registration order.
func NewRuleEngine(rules ...Rule) *RuleEngine {
	return &RuleEngine{rules: rules}
}

// Process evaluates every rule against e and returns the triggered results in
// rule-registration order. At most one result is returned per rule.
func (re *RuleEngine) Process(e NormalizedEvent) []RuleResult {
	var results []RuleResult
	for _, r := range re.rules {
		if msg, sev, ok := r.Check(e); ok {
			results = append(results, RuleResult{RuleName: r.Name(), Message: msg, Severity: sev})
		}
	}
	return results
}

// ThresholdRule fires on Transfer events whose value is at least MinValue.
type ThresholdRule struct {
	MinValue *big.Int
	Sev      Severity
}

// NewThresholdRule builds a ThresholdRule, defaulting to 1000 if minValue fails to parse (per
// the config schema's documented fallback for a malformed min_value).
func NewThresholdRule(minValue string, sev Severity) *ThresholdRule {
	v, ok := new(big.Int).SetString(minValue, 10)
	if !ok {
		v = big.NewInt(1000)
	}
	return &ThresholdRule{MinValue: v, Sev: sev}
}

// Name implements Rule.
func (r *ThresholdRule) Name() string { return "ThresholdRule" }

// Check implements Rule.
func (r *ThresholdRule) Check(e NormalizedEvent) (string, Severity, bool) {
	if e.Kind != Transfer {
		return "", Low, false
	}
	value, ok := new(big.Int).SetString(e.Payload["value"], 10)
	if !ok {
		return "", Low, false
	}
	if value.Cmp(r.MinValue) < 0 {
		return "", Low, false
	}
	return fmt.Sprintf("Large Transfer Detected: %s > %s", value, r.MinValue), r.Sev, true
}

// OwnershipRule fires on every OwnershipTransferred event.
type OwnershipRule struct {
	Sev Severity
}

// NewOwnershipRule builds an OwnershipRule.
func NewOwnershipRule(sev Severity) *OwnershipRule {
	return &OwnershipRule{Sev: sev}
}

// Name implements Rule.
func (r *OwnershipRule) Name() string { return "OwnershipRule" }

// Check implements Rule.
func (r *OwnershipRule) Check(e NormalizedEvent) (string, Severity, bool) {
	if e.Kind != OwnershipTransferred {
		return "", Low, false
	}
	return "Ownership Transferred!", r.Sev, true
}

// defaultHighApprovalThreshold is (2^256 - 1) >> 1, the default HighApprovalRule threshold.
func defaultHighApprovalThreshold() *big.Int {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	return new(big.Int).Rsh(maxUint256, 1)
}

// HighApprovalRule fires on Approval events whose value is at least Threshold.
type HighApprovalRule struct {
	Threshold *big.Int
	Sev       Severity
}

// NewHighApprovalRule builds a HighApprovalRule. A nil threshold defaults to
// (2^256 - 1) >> 1 with Critical severity, regardless of the sev argument.
func NewHighApprovalRule(threshold *big.Int, sev Severity) *HighApprovalRule {
	if threshold == nil {
		threshold = defaultHighApprovalThreshold()
		sev = Critical
	}
	return &HighApprovalRule{Threshold: threshold, Sev: sev}
}

// Name implements Rule.
func (r *HighApprovalRule) Name() string { return "HighApprovalRule" }

// Check implements Rule.
func (r *HighApprovalRule) Check(e NormalizedEvent) (string, Severity, bool) {
	if e.Kind != Approval {
		return "", Low, false
	}
	value, ok := new(big.Int).SetString(e.Payload["value"], 10)
	if !ok {
		return "", Low, false
	}
	if value.Cmp(r.Threshold) < 0 {
		return "", Low, false
	}
	return fmt.Sprintf("High Approval Detected: %s >= %s", value, r.Threshold), r.Sev, true
}
