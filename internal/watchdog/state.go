package watchdog

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/chainwatch-labs/evm-watchdog/pkg/sharedmemory"
)

const maxAlertHistory = 50

// AppState is the concurrency-safe, shared observable state that feeds the dashboard. Every
// sub-structure has its own lock; there is intentionally no global lock, and no ordering is
// guaranteed between fields — the dashboard only ever needs an eventually-consistent view.
type AppState struct {
	startedAt time.Time

	heights       *sharedmemory.BlockHeights
	lastBlockUnix atomic.Int64

	historyMu sync.RWMutex
	history   []AlertRecord

	severityMu     sync.RWMutex
	severityCounts map[Severity]uint64

	ruleHitsMu sync.RWMutex
	ruleHits   map[string]uint64
}

// NewAppState creates an empty AppState, started now.
func NewAppState() *AppState {
	return &AppState{
		startedAt:      time.Now(),
		heights:        sharedmemory.NewBlockHeights(),
		severityCounts: make(map[Severity]uint64),
		ruleHits:       make(map[string]uint64),
	}
}

// UpdateBlock records a chain's latest observed height. Per-chain heights are monotone: an
// older, replayed height is silently discarded rather than rewinding the display.
func (s *AppState) UpdateBlock(chainName string, height uint64) {
	if s.heights.Update(chainName, height) {
		s.lastBlockUnix.Store(time.Now().UnixNano())
	}
}

// AddAlert records one triggered alert. If the most recent history entry has the same
// (severity, chain, message) triple, its count is bumped and its timestamp refreshed instead of
// consuming a new history slot; severityCounts is incremented on every call, coalesced or not.
func (s *AppState) AddAlert(severity Severity, chain, message string) {
	s.severityMu.Lock()
	s.severityCounts[severity]++
	s.severityMu.Unlock()

	now := time.Now()

	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	if n := len(s.history); n > 0 {
		tail := &s.history[n-1]
		if tail.sameKey(severity, chain, message) {
			tail.Count++
			tail.LastSeen = now
			return
		}
	}
	s.history = append(s.history, AlertRecord{
		Severity: severity,
		Chain:    chain,
		Message:  message,
		LastSeen: now,
		Count:    1,
	})
	if len(s.history) > maxAlertHistory {
		s.history = s.history[len(s.history)-maxAlertHistory:]
	}
}

// RecordRuleHit increments the cumulative hit counter for a rule name.
func (s *AppState) RecordRuleHit(ruleName string) {
	s.ruleHitsMu.Lock()
	defer s.ruleHitsMu.Unlock()
	s.ruleHits[ruleName]++
}

// ChainHeights returns a snapshot of every chain's last known height.
func (s *AppState) ChainHeights() map[string]uint64 {
	return s.heights.Snapshot()
}

// LastBlockAge returns how long ago any chain's height last advanced. Zero time (never
// updated) reports as a very large duration so the dashboard's health panel reads red.
func (s *AppState) LastBlockAge() time.Duration {
	unixNano := s.lastBlockUnix.Load()
	if unixNano == 0 {
		return time.Hour * 24 * 365
	}
	return time.Since(time.Unix(0, unixNano))
}

// Uptime returns how long AppState has existed.
func (s *AppState) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// SeverityCounts returns a snapshot of cumulative add-alert invocations per severity,
// including coalesced repeats.
func (s *AppState) SeverityCounts() map[Severity]uint64 {
	s.severityMu.RLock()
	defer s.severityMu.RUnlock()
	out := make(map[Severity]uint64, len(s.severityCounts))
	for k, v := range s.severityCounts {
		out[k] = v
	}
	return out
}

// AlertHistory returns a snapshot of the bounded alert history, oldest first.
func (s *AppState) AlertHistory() []AlertRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]AlertRecord, len(s.history))
	copy(out, s.history)
	return out
}

// RuleHits returns a snapshot of cumulative rule-hit counters.
func (s *AppState) RuleHits() map[string]uint64 {
	s.ruleHitsMu.RLock()
	defer s.ruleHitsMu.RUnlock()
	out := make(map[string]uint64, len(s.ruleHits))
	for k, v := range s.ruleHits {
		out[k] = v
	}
	return out
}
