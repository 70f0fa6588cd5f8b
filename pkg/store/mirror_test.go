package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chainsafe/bridge-core/pkg/bridge"
	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/keys"
	"github.com/chainsafe/bridge-core/pkg/ledger"
	"github.com/chainsafe/bridge-core/pkg/message"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

// The mirror test needs a local Docker daemon for the postgres container;
// it is gated behind BRIDGE_INTEGRATION_TESTS.
func skipWithoutIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("BRIDGE_INTEGRATION_TESTS") == "" {
		t.Skip("set BRIDGE_INTEGRATION_TESTS to run database integration tests")
	}
}

func TestMirrorSync(t *testing.T) {
	skipWithoutIntegration(t)

	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, CreateSchema(ctx, db))
	for _, table := range []string{"committee_members", "assets", "route_limits", "transfers", "sequence_state"} {
		AssertTableExists(t, db, table)
	}

	kp, err := keys.Generate()
	require.NoError(t, err)
	addr, err := kp.Address()
	require.NoError(t, err)

	core, err := bridge.NewCore(bridge.Genesis{
		ChainID:     uint8(chain.NativeMainnet),
		LimitWindow: 24 * time.Hour,
		Members: []bridge.GenesisMember{
			{Address: addr.Hex(), PublicKey: kp.PublicKeyHex(), Stake: 10_000},
		},
		Tokens: []bridge.GenesisToken{
			{ID: treasury.TokenBTC, Symbol: "BTC", Decimals: 0, Price: 100, TypeDescriptor: "0xbtc::btc::BTC"},
		},
		RouteLimits: []bridge.GenesisRouteLimit{
			{SendingChain: uint8(chain.NativeMainnet), ReceivingChain: uint8(chain.EthMainnet), Limit: 1_000_000},
		},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	m := message.NewTokenTransfer(chain.NativeMainnet, 0, message.TokenTransfer{
		Sender:        common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes(),
		TargetChain:   chain.EthMainnet,
		TargetAddress: common.HexToAddress("0x2222222222222222222222222222222222222222").Bytes(),
		TokenID:       treasury.TokenBTC,
		Amount:        5,
	})
	require.NoError(t, core.RecordTransfer(m))

	mirror := NewMirror(db, zaptest.NewLogger(t))
	require.NoError(t, mirror.Sync(ctx, core))

	AssertRowCount(t, db, "committee_members", 1)
	AssertRowCount(t, db, "assets", 1)
	AssertRowCount(t, db, "route_limits", 1)
	AssertRowCount(t, db, "transfers", 1)
	AssertRowCount(t, db, "sequence_state", 5)

	var row TransferRow
	require.NoError(t, db.NewSelect().Model(&row).
		Where("source_chain = ? AND seq_num = ?", uint8(chain.NativeMainnet), 0).
		Scan(ctx))
	assert.Equal(t, TransferStateDeposited, row.State)
	assert.Equal(t, uint64(5), row.Amount)

	t.Run("resync upserts instead of duplicating", func(t *testing.T) {
		sig, err := kp.SignDigest(message.Digest(m).Bytes())
		require.NoError(t, err)
		require.NoError(t, core.AttachSignatures(
			ledger.Key{SourceChain: chain.NativeMainnet, SeqNum: 0}, [][]byte{sig}))

		require.NoError(t, mirror.Sync(ctx, core))
		AssertRowCount(t, db, "transfers", 1)

		var updated TransferRow
		require.NoError(t, db.NewSelect().Model(&updated).
			Where("source_chain = ? AND seq_num = ?", uint8(chain.NativeMainnet), 0).
			Scan(ctx))
		assert.Equal(t, TransferStateApproved, updated.State)
		assert.Equal(t, 1, updated.SignatureCount)
	})
}
