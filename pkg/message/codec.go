package message

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainsafe/bridge-core/pkg/chain"
)

// digestPrefix is prepended to the encoded envelope before hashing so that
// bridge signatures can never be confused with signatures over other
// keccak-hashed material.
var digestPrefix = []byte("BRIDGE_MESSAGE")

// envelopeHeaderLen is type + version + seqNum + sourceChain.
const envelopeHeaderLen = 1 + 1 + 8 + 1

// Encode serializes the envelope. Encode and Decode are exact inverses for
// every well-formed message.
func Encode(m Message) []byte {
	buf := make([]byte, 0, envelopeHeaderLen+len(m.Payload))
	buf = append(buf, uint8(m.Type), m.Version)
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], m.SeqNum)
	buf = append(buf, seq[:]...)
	buf = append(buf, uint8(m.SourceChain))
	buf = append(buf, m.Payload...)
	return buf
}

// Decode parses and validates an encoded envelope, including the
// type-specific payload. Any deviation from the expected layout returns
// ErrMalformedMessage.
func Decode(b []byte) (Message, error) {
	var m Message
	if len(b) < envelopeHeaderLen {
		return m, fmt.Errorf("%w: %d bytes is below the envelope minimum", ErrMalformedMessage, len(b))
	}

	m.Type = Type(b[0])
	if !m.Type.Valid() {
		return m, fmt.Errorf("%w: message type %d out of range", ErrMalformedMessage, b[0])
	}
	m.Version = b[1]
	if m.Version != Version {
		return m, fmt.Errorf("%w: unsupported version %d", ErrMalformedMessage, m.Version)
	}
	m.SeqNum = binary.BigEndian.Uint64(b[2:10])

	sourceChain, err := chain.FromByte(b[10])
	if err != nil {
		return m, fmt.Errorf("%w: source %v", ErrMalformedMessage, err)
	}
	m.SourceChain = sourceChain
	m.Payload = append([]byte(nil), b[envelopeHeaderLen:]...)

	if err := validatePayload(m); err != nil {
		return m, err
	}
	return m, nil
}

func validatePayload(m Message) error {
	var err error
	switch m.Type {
	case TypeTokenTransfer:
		_, err = decodeTokenTransfer(m.Payload)
	case TypeCommitteeBlocklist:
		_, err = decodeCommitteeBlocklist(m.Payload)
	case TypeEmergencyOp:
		_, err = decodeEmergencyOp(m.Payload)
	case TypeUpdateRouteLimit:
		_, err = decodeUpdateRouteLimit(m.Payload)
	case TypeUpdateAssetPrice:
		_, err = decodeUpdateAssetPrice(m.Payload)
	}
	return err
}

// Digest returns the keccak256 hash committee members sign. It covers the
// prefixed full envelope, never the payload alone, binding every signature
// to a message type, source chain, and sequence number.
func Digest(m Message) common.Hash {
	encoded := Encode(m)
	data := make([]byte, 0, len(digestPrefix)+len(encoded))
	data = append(data, digestPrefix...)
	data = append(data, encoded...)
	return crypto.Keccak256Hash(data)
}
