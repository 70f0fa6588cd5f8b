// Package message implements the deterministic binary codec for bridge
// messages: the common envelope, the five payload kinds, and the digest
// committee members sign.
package message

import (
	"errors"
	"fmt"

	"github.com/chainsafe/bridge-core/pkg/chain"
)

// Type discriminates the message kinds carried in the envelope.
type Type uint8

const (
	TypeTokenTransfer      Type = 0
	TypeCommitteeBlocklist Type = 1
	TypeEmergencyOp        Type = 2
	TypeUpdateRouteLimit   Type = 3
	TypeUpdateAssetPrice   Type = 4
)

// Version is the only envelope version currently emitted or accepted.
const Version uint8 = 1

// ErrMalformedMessage is returned for any byte sequence that does not decode
// to a well-formed message: short input, payload length mismatch, or an
// enumerated field out of range.
var ErrMalformedMessage = errors.New("malformed message")

// Valid reports whether the type is a known message kind.
func (t Type) Valid() bool {
	return t <= TypeUpdateAssetPrice
}

func (t Type) String() string {
	switch t {
	case TypeTokenTransfer:
		return "token_transfer"
	case TypeCommitteeBlocklist:
		return "committee_blocklist"
	case TypeEmergencyOp:
		return "emergency_op"
	case TypeUpdateRouteLimit:
		return "update_route_limit"
	case TypeUpdateAssetPrice:
		return "update_asset_price"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Types lists every message kind, in wire order.
func Types() []Type {
	return []Type{
		TypeTokenTransfer,
		TypeCommitteeBlocklist,
		TypeEmergencyOp,
		TypeUpdateRouteLimit,
		TypeUpdateAssetPrice,
	}
}

// Message is the envelope shared by all bridge messages. Payload holds the
// already-validated type-specific bytes; the typed accessors below decode it.
type Message struct {
	Type        Type
	Version     uint8
	SeqNum      uint64
	SourceChain chain.ID
	Payload     []byte
}

// Key identifies a message within its type's sequence space.
func (m Message) Key() string {
	return fmt.Sprintf("%s/%d/%d", m.Type, uint8(m.SourceChain), m.SeqNum)
}
