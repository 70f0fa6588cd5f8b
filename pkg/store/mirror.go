package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chainsafe/bridge-core/pkg/bridge"
	"github.com/chainsafe/bridge-core/pkg/ledger"
	"github.com/chainsafe/bridge-core/pkg/message"
)

// Mirror copies bridge core state into the database. Sync is a full upsert of
// the current snapshot; rows are never deleted, matching the core's
// append-only ledger.
type Mirror struct {
	db  *bun.DB
	log *zap.Logger
	now func() time.Time
}

// NewMirror creates a mirror writing through the given connection.
func NewMirror(db *bun.DB, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{db: db, log: log, now: time.Now}
}

// Sync upserts the core's committee, assets, route limits, transfers, and
// sequence counters.
func (m *Mirror) Sync(ctx context.Context, core *bridge.Core) error {
	now := m.now()

	for _, member := range core.CommitteeMembers() {
		row := &CommitteeMemberRow{
			Address:     member.Address.Hex(),
			PublicKey:   hex.EncodeToString(member.PublicKey),
			Stake:       member.Stake,
			MetadataURL: member.MetadataURL,
			Blocklisted: member.Blocklisted,
			UpdatedAt:   now,
		}
		if _, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (address) DO UPDATE").
			Set("blocklisted = EXCLUDED.blocklisted").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to sync committee member %s: %w", row.Address, err)
		}
	}

	for _, asset := range core.Assets() {
		row := &AssetRow{
			TokenID:        asset.ID,
			Symbol:         asset.Symbol,
			Decimals:       asset.Decimals,
			Price:          asset.Price,
			Native:         asset.Native,
			TypeDescriptor: asset.TypeDescriptor,
			UpdatedAt:      now,
		}
		if _, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (token_id) DO UPDATE").
			Set("price = EXCLUDED.price").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to sync asset %d: %w", asset.ID, err)
		}
	}

	for _, rl := range core.RouteLimits() {
		row := &RouteLimitRow{
			Route:       rl.Route.String(),
			Cap:         rl.Cap,
			WindowStart: rl.WindowStart,
			Accumulated: rl.Accumulated.String(),
			UpdatedAt:   now,
		}
		if _, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (route) DO UPDATE").
			Set("cap = EXCLUDED.cap").
			Set("window_start = EXCLUDED.window_start").
			Set("accumulated = EXCLUDED.accumulated").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to sync route limit %s: %w", row.Route, err)
		}
	}

	for _, record := range core.Transfers() {
		row := &TransferRow{
			ID:               uuid.New(),
			SourceChain:      uint8(record.Message.SourceChain),
			SeqNum:           record.Message.SeqNum,
			State:            transferState(record.Status()),
			Sender:           hex.EncodeToString(record.Transfer.Sender),
			Recipient:        hex.EncodeToString(record.Transfer.TargetAddress),
			DestinationChain: uint8(record.Transfer.TargetChain),
			TokenID:          record.Transfer.TokenID,
			Amount:           record.Transfer.Amount,
			SignatureCount:   len(record.Signatures),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (source_chain, seq_num) DO UPDATE").
			Set("state = EXCLUDED.state").
			Set("signature_count = EXCLUDED.signature_count").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to sync transfer %d/%d: %w", row.SourceChain, row.SeqNum, err)
		}
	}

	for _, t := range message.Types() {
		row := &SequenceRow{
			MessageType: t.String(),
			NextSeq:     core.SequenceNum(t),
			UpdatedAt:   now,
		}
		if _, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (message_type) DO UPDATE").
			Set("next_seq = EXCLUDED.next_seq").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to sync sequence for %s: %w", t, err)
		}
	}

	m.log.Debug("state mirrored to database")
	return nil
}

// Run syncs on a fixed interval until the context is canceled.
func (m *Mirror) Run(ctx context.Context, core *bridge.Core, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sync(ctx, core); err != nil {
				m.log.Error("mirror sync failed", zap.Error(err))
			}
		}
	}
}

func transferState(s ledger.Status) string {
	switch s {
	case ledger.StatusApproved:
		return TransferStateApproved
	case ledger.StatusClaimed:
		return TransferStateClaimed
	default:
		return TransferStateDeposited
	}
}
