package watchdog

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func transferEvent(value string) NormalizedEvent {
	return NormalizedEvent{
		ChainName: "ethereum",
		Kind:      Transfer,
		Payload:   map[string]string{"from": "0xa", "to": "0xb", "value": value},
	}
}

func approvalEvent(value string) NormalizedEvent {
	return NormalizedEvent{
		ChainName: "ethereum",
		Kind:      Approval,
		Payload:   map[string]string{"owner": "0xa", "spender": "0xb", "value": value},
	}
}

func TestThresholdRuleFiresAtAndAboveMinValue(t *testing.T) {
	t.Parallel()

	rule := NewThresholdRule("1000", High)

	msg, sev, ok := rule.Check(transferEvent("1000"))
	require.True(t, ok)
	require.Equal(t, High, sev)
	require.Contains(t, msg, "1000")

	_, _, ok = rule.Check(transferEvent("999"))
	require.False(t, ok)
}

func TestThresholdRuleIgnoresNonTransfer(t *testing.T) {
	t.Parallel()
	rule := NewThresholdRule("1000", High)
	_, _, ok := rule.Check(approvalEvent("5000"))
	require.False(t, ok)
}

func TestThresholdRuleMalformedMinValueFallsBackTo1000(t *testing.T) {
	t.Parallel()
	rule := NewThresholdRule("not-a-number", High)
	require.Equal(t, big.NewInt(1000), rule.MinValue)
}

func TestOwnershipRuleFiresOnEveryOwnershipTransfer(t *testing.T) {
	t.Parallel()
	rule := NewOwnershipRule(Critical)
	e := NormalizedEvent{Kind: OwnershipTransferred}
	msg, sev, ok := rule.Check(e)
	require.True(t, ok)
	require.Equal(t, Critical, sev)
	require.Equal(t, "Ownership Transferred!", msg)
}

func TestHighApprovalRuleDefaultThreshold(t *testing.T) {
	t.Parallel()
	rule := NewHighApprovalRule(nil, Low) // severity argument ignored when threshold is nil
	require.Equal(t, Critical, rule.Sev)

	half := new(big.Int).Rsh(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)), 1)
	_, sev, ok := rule.Check(approvalEvent(half.String()))
	require.True(t, ok)
	require.Equal(t, Critical, sev)

	below := new(big.Int).Sub(half, big.NewInt(1))
	_, _, ok = rule.Check(approvalEvent(below.String()))
	require.False(t, ok)
}

func TestRuleEngineReturnsResultsInRegistrationOrder(t *testing.T) {
	t.Parallel()

	engine := NewRuleEngine(
		NewOwnershipRule(Critical),
		NewThresholdRule("1000", High),
		NewHighApprovalRule(nil, Critical),
	)

	results := engine.Process(NormalizedEvent{Kind: OwnershipTransferred})
	require.Len(t, results, 1)
	require.Equal(t, "OwnershipRule", results[0].RuleName)

	// Two rules that both fire on the same event come back in registration order.
	ordered := NewRuleEngine(NewThresholdRule("10", Medium), NewThresholdRule("1000", High))
	results = ordered.Process(transferEvent("5000"))
	require.Len(t, results, 2)
	require.Equal(t, Medium, results[0].Severity)
	require.Equal(t, High, results[1].Severity)
}

func TestRuleEngineAtMostOneEntryPerRule(t *testing.T) {
	t.Parallel()

	engine := NewRuleEngine(NewThresholdRule("1000", High))
	results := engine.Process(transferEvent("5000"))
	require.Len(t, results, 1)
}
