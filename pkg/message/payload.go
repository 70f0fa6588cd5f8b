package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsafe/bridge-core/pkg/chain"
)

// TokenTransfer moves tokens from the source chain to a target chain.
//
// Wire layout:
//
//	senderLen u8 | sender | targetChain u8 | targetLen u8 | target | tokenID u8 | amount u64
type TokenTransfer struct {
	Sender        []byte
	TargetChain   chain.ID
	TargetAddress []byte
	TokenID       uint8
	Amount        uint64
}

// Encode serializes the payload in wire layout.
func (p TokenTransfer) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(uint8(len(p.Sender)))
	buf.Write(p.Sender)
	buf.WriteByte(uint8(p.TargetChain))
	buf.WriteByte(uint8(len(p.TargetAddress)))
	buf.Write(p.TargetAddress)
	buf.WriteByte(p.TokenID)
	var amount [8]byte
	binary.BigEndian.PutUint64(amount[:], p.Amount)
	buf.Write(amount[:])
	return buf.Bytes()
}

func decodeTokenTransfer(b []byte) (TokenTransfer, error) {
	var p TokenTransfer
	if len(b) < 1 {
		return p, fmt.Errorf("%w: empty token transfer payload", ErrMalformedMessage)
	}
	senderLen := int(b[0])
	// sender | targetChain | targetLen
	if len(b) < 1+senderLen+2 {
		return p, fmt.Errorf("%w: truncated token transfer sender", ErrMalformedMessage)
	}
	p.Sender = append([]byte(nil), b[1:1+senderLen]...)
	off := 1 + senderLen

	targetChain, err := chain.FromByte(b[off])
	if err != nil {
		return p, fmt.Errorf("%w: target %v", ErrMalformedMessage, err)
	}
	p.TargetChain = targetChain
	off++

	targetLen := int(b[off])
	off++
	if len(b) != off+targetLen+1+8 {
		return p, fmt.Errorf("%w: token transfer payload length %d", ErrMalformedMessage, len(b))
	}
	p.TargetAddress = append([]byte(nil), b[off:off+targetLen]...)
	off += targetLen

	p.TokenID = b[off]
	off++
	p.Amount = binary.BigEndian.Uint64(b[off:])
	return p, nil
}

// BlocklistOp selects whether addresses are added to or removed from the
// committee blocklist.
type BlocklistOp uint8

const (
	BlocklistAdd    BlocklistOp = 0
	BlocklistRemove BlocklistOp = 1
)

func (op BlocklistOp) String() string {
	if op == BlocklistAdd {
		return "add"
	}
	return "remove"
}

// CommitteeBlocklist adds or removes committee members from the blocklist.
//
// Wire layout:
//
//	op u8 | n u8 | n x 20-byte member address
type CommitteeBlocklist struct {
	Op      BlocklistOp
	Members []common.Address
}

// Encode serializes the payload in wire layout.
func (p CommitteeBlocklist) Encode() []byte {
	buf := make([]byte, 0, 2+len(p.Members)*common.AddressLength)
	buf = append(buf, uint8(p.Op), uint8(len(p.Members)))
	for _, addr := range p.Members {
		buf = append(buf, addr.Bytes()...)
	}
	return buf
}

func decodeCommitteeBlocklist(b []byte) (CommitteeBlocklist, error) {
	var p CommitteeBlocklist
	if len(b) < 2 {
		return p, fmt.Errorf("%w: truncated blocklist payload", ErrMalformedMessage)
	}
	if b[0] > uint8(BlocklistRemove) {
		return p, fmt.Errorf("%w: blocklist op %d out of range", ErrMalformedMessage, b[0])
	}
	p.Op = BlocklistOp(b[0])
	n := int(b[1])
	if len(b) != 2+n*common.AddressLength {
		return p, fmt.Errorf("%w: blocklist payload length %d for %d members", ErrMalformedMessage, len(b), n)
	}
	p.Members = make([]common.Address, n)
	for i := 0; i < n; i++ {
		copy(p.Members[i][:], b[2+i*common.AddressLength:])
	}
	return p, nil
}

// EmergencyAction pauses or unpauses the whole bridge.
type EmergencyAction uint8

const (
	EmergencyPause   EmergencyAction = 0
	EmergencyUnpause EmergencyAction = 1
)

func (a EmergencyAction) String() string {
	if a == EmergencyPause {
		return "pause"
	}
	return "unpause"
}

// EmergencyOp carries a single pause/unpause action byte.
type EmergencyOp struct {
	Action EmergencyAction
}

// Encode serializes the payload in wire layout.
func (p EmergencyOp) Encode() []byte {
	return []byte{uint8(p.Action)}
}

func decodeEmergencyOp(b []byte) (EmergencyOp, error) {
	var p EmergencyOp
	if len(b) != 1 {
		return p, fmt.Errorf("%w: emergency op payload length %d", ErrMalformedMessage, len(b))
	}
	if b[0] > uint8(EmergencyUnpause) {
		return p, fmt.Errorf("%w: emergency action %d out of range", ErrMalformedMessage, b[0])
	}
	p.Action = EmergencyAction(b[0])
	return p, nil
}

// UpdateRouteLimit replaces the notional cap on one route.
//
// Wire layout:
//
//	receivingChain u8 | sendingChain u8 | newLimit u64
type UpdateRouteLimit struct {
	ReceivingChain chain.ID
	SendingChain   chain.ID
	NewLimit       uint64
}

// Route returns the (sending, receiving) route the limit applies to.
func (p UpdateRouteLimit) Route() chain.Route {
	return chain.Route{Source: p.SendingChain, Destination: p.ReceivingChain}
}

// Encode serializes the payload in wire layout.
func (p UpdateRouteLimit) Encode() []byte {
	buf := make([]byte, 10)
	buf[0] = uint8(p.ReceivingChain)
	buf[1] = uint8(p.SendingChain)
	binary.BigEndian.PutUint64(buf[2:], p.NewLimit)
	return buf
}

func decodeUpdateRouteLimit(b []byte) (UpdateRouteLimit, error) {
	var p UpdateRouteLimit
	if len(b) != 10 {
		return p, fmt.Errorf("%w: route limit payload length %d", ErrMalformedMessage, len(b))
	}
	receiving, err := chain.FromByte(b[0])
	if err != nil {
		return p, fmt.Errorf("%w: receiving %v", ErrMalformedMessage, err)
	}
	sending, err := chain.FromByte(b[1])
	if err != nil {
		return p, fmt.Errorf("%w: sending %v", ErrMalformedMessage, err)
	}
	p.ReceivingChain = receiving
	p.SendingChain = sending
	p.NewLimit = binary.BigEndian.Uint64(b[2:])
	return p, nil
}

// UpdateAssetPrice replaces the notional unit price of one token.
//
// Wire layout:
//
//	tokenID u8 | newPrice u64
type UpdateAssetPrice struct {
	TokenID  uint8
	NewPrice uint64
}

// Encode serializes the payload in wire layout.
func (p UpdateAssetPrice) Encode() []byte {
	buf := make([]byte, 9)
	buf[0] = p.TokenID
	binary.BigEndian.PutUint64(buf[1:], p.NewPrice)
	return buf
}

func decodeUpdateAssetPrice(b []byte) (UpdateAssetPrice, error) {
	var p UpdateAssetPrice
	if len(b) != 9 {
		return p, fmt.Errorf("%w: asset price payload length %d", ErrMalformedMessage, len(b))
	}
	p.TokenID = b[0]
	p.NewPrice = binary.BigEndian.Uint64(b[1:])
	return p, nil
}

// TokenTransfer decodes the payload of a token transfer message.
func (m Message) TokenTransfer() (TokenTransfer, error) {
	if m.Type != TypeTokenTransfer {
		return TokenTransfer{}, fmt.Errorf("%w: message is %s, not %s", ErrMalformedMessage, m.Type, TypeTokenTransfer)
	}
	return decodeTokenTransfer(m.Payload)
}

// CommitteeBlocklist decodes the payload of a blocklist message.
func (m Message) CommitteeBlocklist() (CommitteeBlocklist, error) {
	if m.Type != TypeCommitteeBlocklist {
		return CommitteeBlocklist{}, fmt.Errorf("%w: message is %s, not %s", ErrMalformedMessage, m.Type, TypeCommitteeBlocklist)
	}
	return decodeCommitteeBlocklist(m.Payload)
}

// EmergencyOp decodes the payload of an emergency op message.
func (m Message) EmergencyOp() (EmergencyOp, error) {
	if m.Type != TypeEmergencyOp {
		return EmergencyOp{}, fmt.Errorf("%w: message is %s, not %s", ErrMalformedMessage, m.Type, TypeEmergencyOp)
	}
	return decodeEmergencyOp(m.Payload)
}

// UpdateRouteLimit decodes the payload of a route limit message.
func (m Message) UpdateRouteLimit() (UpdateRouteLimit, error) {
	if m.Type != TypeUpdateRouteLimit {
		return UpdateRouteLimit{}, fmt.Errorf("%w: message is %s, not %s", ErrMalformedMessage, m.Type, TypeUpdateRouteLimit)
	}
	return decodeUpdateRouteLimit(m.Payload)
}

// UpdateAssetPrice decodes the payload of an asset price message.
func (m Message) UpdateAssetPrice() (UpdateAssetPrice, error) {
	if m.Type != TypeUpdateAssetPrice {
		return UpdateAssetPrice{}, fmt.Errorf("%w: message is %s, not %s", ErrMalformedMessage, m.Type, TypeUpdateAssetPrice)
	}
	return decodeUpdateAssetPrice(m.Payload)
}

// payloader is implemented by every payload kind.
type payloader interface {
	Encode() []byte
}

func newMessage(t Type, sourceChain chain.ID, seqNum uint64, p payloader) Message {
	return Message{
		Type:        t,
		Version:     Version,
		SeqNum:      seqNum,
		SourceChain: sourceChain,
		Payload:     p.Encode(),
	}
}

// NewTokenTransfer builds a token transfer message envelope.
func NewTokenTransfer(sourceChain chain.ID, seqNum uint64, p TokenTransfer) Message {
	return newMessage(TypeTokenTransfer, sourceChain, seqNum, p)
}

// NewCommitteeBlocklist builds a blocklist message envelope.
func NewCommitteeBlocklist(sourceChain chain.ID, seqNum uint64, p CommitteeBlocklist) Message {
	return newMessage(TypeCommitteeBlocklist, sourceChain, seqNum, p)
}

// NewEmergencyOp builds an emergency op message envelope.
func NewEmergencyOp(sourceChain chain.ID, seqNum uint64, p EmergencyOp) Message {
	return newMessage(TypeEmergencyOp, sourceChain, seqNum, p)
}

// NewUpdateRouteLimit builds a route limit message envelope.
func NewUpdateRouteLimit(sourceChain chain.ID, seqNum uint64, p UpdateRouteLimit) Message {
	return newMessage(TypeUpdateRouteLimit, sourceChain, seqNum, p)
}

// NewUpdateAssetPrice builds an asset price message envelope.
func NewUpdateAssetPrice(sourceChain chain.ID, seqNum uint64, p UpdateAssetPrice) Message {
	return newMessage(TypeUpdateAssetPrice, sourceChain, seqNum, p)
}
