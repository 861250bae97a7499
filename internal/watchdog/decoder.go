package watchdog

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical event signatures this build recognizes by their topic0 (keccak256 of the
// signature string), grounded on how go-ethereum's own abi.Event computes an event ID.
const (
	sigTransfer             = "Transfer(address,address,uint256)"
	sigApproval             = "Approval(address,address,uint256)"
	sigOwnershipTransferred = "OwnershipTransferred(address,address)"
)

var topic0ToKind = map[common.Hash]EventKind{
	topic0ForSignature(sigTransfer):             Transfer,
	topic0ForSignature(sigApproval):             Approval,
	topic0ForSignature(sigOwnershipTransferred): OwnershipTransferred,
}

func topic0ForSignature(sig string) common.Hash {
	return crypto.Keccak256Hash([]byte(sig))
}

// DecodeLog turns a raw EVM log into an event kind and payload. A log whose topic0 matches no
// known signature is returned as the Unknown kind with the raw topics passed through, never as
// an error — only structurally malformed logs (missing topics, short data) are errors, and the
// caller (the chain subscriber) logs and drops those without propagating them further.
func DecodeLog(l types.Log) (EventKind, map[string]string, error) {
	if len(l.Topics) == 0 {
		return EventKind{}, nil, fmt.Errorf("log has no topics")
	}
	topic0 := l.Topics[0]

	kind, known := topic0ToKind[topic0]
	if !known {
		return UnknownEvent(topic0.Hex()), map[string]string{"raw_topics": joinHexes(l.Topics)}, nil
	}

	switch kind {
	case Transfer, Approval:
		if len(l.Topics) != 3 {
			return EventKind{}, nil, fmt.Errorf("%s: expected 3 topics, got %d", kind, len(l.Topics))
		}
		if len(l.Data) < 32 {
			return EventKind{}, nil, fmt.Errorf("%s: data too short for uint256 (%d bytes)", kind, len(l.Data))
		}
		from := addressFromTopic(l.Topics[1])
		to := addressFromTopic(l.Topics[2])
		value := uint256FromData(l.Data)
		if kind == Transfer {
			return kind, map[string]string{
				"from":  from.Hex(),
				"to":    to.Hex(),
				"value": value,
			}, nil
		}
		return kind, map[string]string{
			"owner":   from.Hex(),
			"spender": to.Hex(),
			"value":   value,
		}, nil

	case OwnershipTransferred:
		if len(l.Topics) != 3 {
			return EventKind{}, nil, fmt.Errorf("OwnershipTransferred: expected 3 topics, got %d", len(l.Topics))
		}
		return kind, map[string]string{
			"previousOwner": addressFromTopic(l.Topics[1]).Hex(),
			"newOwner":      addressFromTopic(l.Topics[2]).Hex(),
		}, nil
	}

	// Unreachable: every entry in topic0ToKind is handled above.
	return UnknownEvent(topic0.Hex()), nil, nil
}

// addressFromTopic recovers a 20-byte address from the low bytes of an indexed 32-byte topic.
func addressFromTopic(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes()[12:])
}

// uint256FromData decodes a 32-byte data slot into a decimal string, preserving full range for
// values that exceed 64 bits.
func uint256FromData(data []byte) string {
	return new(big.Int).SetBytes(data[:32]).String()
}

func joinHexes(hashes []common.Hash) string {
	s := ""
	for i, h := range hashes {
		if i > 0 {
			s += ","
		}
		s += h.Hex()
	}
	return s
}
