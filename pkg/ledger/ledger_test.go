package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/message"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

func transferMessage(sourceChain chain.ID, seq uint64, amount uint64) message.Message {
	return message.NewTokenTransfer(sourceChain, seq, message.TokenTransfer{
		Sender:        common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes(),
		TargetChain:   chain.EthMainnet,
		TargetAddress: common.HexToAddress("0x2222222222222222222222222222222222222222").Bytes(),
		TokenID:       treasury.TokenBTC,
		Amount:        amount,
	})
}

func TestInsertCreatesPendingRecord(t *testing.T) {
	l := New()
	m := transferMessage(chain.NativeMainnet, 0, 100)
	require.NoError(t, l.Insert(m))

	key := Key{SourceChain: chain.NativeMainnet, SeqNum: 0}
	assert.Equal(t, StatusPending, l.Status(key))

	r, ok := l.Record(key)
	require.True(t, ok)
	assert.Equal(t, uint64(100), r.Transfer.Amount)
	assert.Nil(t, r.Signatures)
	assert.False(t, r.Claimed)
}

func TestInsertValidation(t *testing.T) {
	tests := []struct {
		name    string
		message message.Message
		wantErr error
	}{
		{
			name:    "zero amount",
			message: transferMessage(chain.NativeMainnet, 0, 0),
			wantErr: ErrZeroValue,
		},
		{
			name: "short evm address",
			message: message.NewTokenTransfer(chain.NativeMainnet, 0, message.TokenTransfer{
				Sender:        common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes(),
				TargetChain:   chain.EthMainnet,
				TargetAddress: []byte{0xde, 0xad, 0xbe, 0xef},
				TokenID:       treasury.TokenBTC,
				Amount:        1,
			}),
			wantErr: ErrInvalidEVMAddress,
		},
		{
			name: "route crosses network class",
			message: message.NewTokenTransfer(chain.NativeMainnet, 0, message.TokenTransfer{
				Sender:        common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes(),
				TargetChain:   chain.EthSepolia,
				TargetAddress: common.HexToAddress("0x2222222222222222222222222222222222222222").Bytes(),
				TokenID:       treasury.TokenBTC,
				Amount:        1,
			}),
			wantErr: chain.ErrInvalidRoute,
		},
		{
			name:    "not a transfer message",
			message: message.NewEmergencyOp(chain.NativeMainnet, 0, message.EmergencyOp{Action: message.EmergencyPause}),
			wantErr: message.ErrMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			assert.ErrorIs(t, l.Insert(tt.message), tt.wantErr)

			key := Key{SourceChain: tt.message.SourceChain, SeqNum: tt.message.SeqNum}
			assert.Equal(t, StatusNotFound, l.Status(key), "failed insert must not create a record")
		})
	}
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	l := New()
	require.NoError(t, l.Insert(transferMessage(chain.NativeMainnet, 5, 100)))

	err := l.Insert(transferMessage(chain.NativeMainnet, 5, 999))
	assert.ErrorIs(t, err, ErrDuplicateTransfer)

	// Same seq from a different chain is a different key.
	assert.NoError(t, l.Insert(transferMessage(chain.EthMainnet, 5, 100)))
}

func TestLifecycle(t *testing.T) {
	l := New()
	key := Key{SourceChain: chain.NativeMainnet, SeqNum: 1}
	sigs := [][]byte{make([]byte, 65)}

	t.Run("attach before insert", func(t *testing.T) {
		assert.ErrorIs(t, l.AttachSignatures(key, sigs), ErrTransferNotFound)
	})

	require.NoError(t, l.Insert(transferMessage(chain.NativeMainnet, 1, 100)))

	t.Run("claim before approval", func(t *testing.T) {
		assert.ErrorIs(t, l.MarkClaimed(key), ErrTransferNotApproved)
		assert.Equal(t, StatusPending, l.Status(key))
	})

	require.NoError(t, l.AttachSignatures(key, sigs))
	assert.Equal(t, StatusApproved, l.Status(key))

	require.NoError(t, l.MarkClaimed(key))
	assert.Equal(t, StatusClaimed, l.Status(key))

	t.Run("claimed is terminal", func(t *testing.T) {
		assert.ErrorIs(t, l.MarkClaimed(key), ErrTransferClaimed)
		assert.ErrorIs(t, l.AttachSignatures(key, sigs), ErrTransferClaimed)
	})
}

func TestAttachEmptySetStillApproves(t *testing.T) {
	// A present-but-empty signature set marks approval; pending is only the
	// absence of a set.
	l := New()
	key := Key{SourceChain: chain.NativeMainnet, SeqNum: 2}
	require.NoError(t, l.Insert(transferMessage(chain.NativeMainnet, 2, 100)))

	require.NoError(t, l.AttachSignatures(key, nil))
	assert.Equal(t, StatusApproved, l.Status(key))
}

func TestStatusUnknownKey(t *testing.T) {
	l := New()
	assert.Equal(t, StatusNotFound, l.Status(Key{SourceChain: chain.EthLocal, SeqNum: 9}))
}
