package message

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/bridge-core/pkg/chain"
)

func testTransferMessage() Message {
	return NewTokenTransfer(chain.NativeMainnet, 7, TokenTransfer{
		Sender:        common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes(),
		TargetChain:   chain.EthMainnet,
		TargetAddress: common.HexToAddress("0x2222222222222222222222222222222222222222").Bytes(),
		TokenID:       1,
		Amount:        100_000_000,
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	messages := []Message{
		testTransferMessage(),
		NewCommitteeBlocklist(chain.NativeTestnet, 0, CommitteeBlocklist{
			Op: BlocklistAdd,
			Members: []common.Address{
				common.HexToAddress("0x3333333333333333333333333333333333333333"),
				common.HexToAddress("0x4444444444444444444444444444444444444444"),
			},
		}),
		NewEmergencyOp(chain.NativeMainnet, 2, EmergencyOp{Action: EmergencyPause}),
		NewUpdateRouteLimit(chain.NativeMainnet, 15, UpdateRouteLimit{
			ReceivingChain: chain.EthMainnet,
			SendingChain:   chain.NativeMainnet,
			NewLimit:       1_000_000_000,
		}),
		NewUpdateAssetPrice(chain.NativeLocal, 3, UpdateAssetPrice{TokenID: 2, NewPrice: 250_000}),
	}

	for _, m := range messages {
		t.Run(m.Type.String(), func(t *testing.T) {
			decoded, err := Decode(Encode(m))
			require.NoError(t, err)
			assert.Equal(t, m, decoded)
		})
	}
}

func TestDecodeTokenTransferPayload(t *testing.T) {
	m := testTransferMessage()
	decoded, err := Decode(Encode(m))
	require.NoError(t, err)

	transfer, err := decoded.TokenTransfer()
	require.NoError(t, err)
	assert.Equal(t, chain.EthMainnet, transfer.TargetChain)
	assert.Equal(t, uint8(1), transfer.TokenID)
	assert.Equal(t, uint64(100_000_000), transfer.Amount)
	assert.Len(t, transfer.TargetAddress, 20)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	valid := Encode(testTransferMessage())

	tests := []struct {
		name  string
		bytes []byte
	}{
		{"empty", nil},
		{"short header", valid[:5]},
		{"unknown type", append([]byte{99}, valid[1:]...)},
		{"unknown version", func() []byte {
			b := append([]byte(nil), valid...)
			b[1] = 9
			return b
		}()},
		{"unknown source chain", func() []byte {
			b := append([]byte(nil), valid...)
			b[10] = 200
			return b
		}()},
		{"truncated payload", valid[:len(valid)-3]},
		{"trailing bytes", append(append([]byte(nil), valid...), 0xff)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.bytes)
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestDecodeRejectsOutOfRangeEnums(t *testing.T) {
	blocklist := NewCommitteeBlocklist(chain.NativeMainnet, 1, CommitteeBlocklist{Op: BlocklistRemove})
	blocklist.Payload[0] = 7
	_, err := Decode(Encode(blocklist))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	emergency := NewEmergencyOp(chain.NativeMainnet, 1, EmergencyOp{Action: EmergencyUnpause})
	emergency.Payload[0] = 2
	_, err = Decode(Encode(emergency))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestBlocklistLengthMustMatchMemberCount(t *testing.T) {
	m := NewCommitteeBlocklist(chain.NativeMainnet, 1, CommitteeBlocklist{
		Op:      BlocklistAdd,
		Members: []common.Address{common.HexToAddress("0x5555555555555555555555555555555555555555")},
	})
	// Claim two members while carrying bytes for one.
	m.Payload[1] = 2
	_, err := Decode(Encode(m))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestTypedAccessorRejectsWrongKind(t *testing.T) {
	m := testTransferMessage()
	_, err := m.EmergencyOp()
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDigestBindsEnvelopeFields(t *testing.T) {
	base := testTransferMessage()

	differentSeq := base
	differentSeq.SeqNum = base.SeqNum + 1

	differentChain := base
	differentChain.SourceChain = chain.NativeTestnet

	// Same payload bytes under a different type must not share a digest,
	// otherwise a signature could be replayed across message kinds.
	differentType := base
	differentType.Type = TypeCommitteeBlocklist

	d := Digest(base)
	assert.NotEqual(t, d, Digest(differentSeq))
	assert.NotEqual(t, d, Digest(differentChain))
	assert.NotEqual(t, d, Digest(differentType))
	assert.Equal(t, d, Digest(base), "digest must be deterministic")
}
