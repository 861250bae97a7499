package watchdog

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind tags the shape of a normalized event. Unknown carries the hex topic0 of any log
// whose signature this build doesn't recognize, so it can still flow through the pipeline
// without crashing it (it simply matches no rule today).
type EventKind struct {
	name  string
	topic string // populated only when name == "Unknown"
}

// Known event kinds.
var (
	Transfer             = EventKind{name: "Transfer"}
	Approval             = EventKind{name: "Approval"}
	OwnershipTransferred = EventKind{name: "OwnershipTransferred"}
)

// UnknownEvent builds the tagged variant for a log whose topic0 matched no known signature.
func UnknownEvent(topic0Hex string) EventKind {
	return EventKind{name: "Unknown", topic: topic0Hex}
}

// String renders the event kind, e.g. "Transfer" or "Unknown(0xdead...)".
func (k EventKind) String() string {
	if k.name == "Unknown" {
		return "Unknown(" + k.topic + ")"
	}
	return k.name
}

// IsUnknown reports whether this event kind is the Unknown fallback variant.
func (k EventKind) IsUnknown() bool {
	return k.name == "Unknown"
}

// NormalizedEvent is the rule-ready representation of a decoded on-chain log.
type NormalizedEvent struct {
	ChainID   uint64
	ChainName string

	Contract common.Address
	TxHash   common.Hash
	Block    uint64

	Kind     EventKind
	Severity Severity // always Low at ingress; rules decide if and how severe an alert is

	// Payload carries event fields keyed by name. 256-bit integers are decimal strings to
	// preserve range beyond 64 bits; addresses are 0x-prefixed hex strings (the decoder writes
	// them in EIP-55 checksummed form via common.Address.Hex).
	Payload map[string]string
}

// AlertRecord is one entry in AppState's bounded alert history.
type AlertRecord struct {
	Severity  Severity
	Chain     string
	Message   string
	LastSeen  time.Time
	Count     int
}

// sameKey reports whether r and a candidate (severity, chain, message) triple would coalesce.
func (r AlertRecord) sameKey(severity Severity, chain, message string) bool {
	return r.Severity == severity && r.Chain == chain && r.Message == message
}
