// Package bridge assembles the committee, treasury, limiter, and transfer
// ledger into the single state machine a bridge node runs: transfers in,
// signatures attached, claims finalized, governance applied.
package bridge

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chainsafe/bridge-core/internal/metrics"
	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/committee"
	"github.com/chainsafe/bridge-core/pkg/ledger"
	"github.com/chainsafe/bridge-core/pkg/limiter"
	"github.com/chainsafe/bridge-core/pkg/message"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

// Core is the process-wide bridge state. All mutations run under one mutex;
// the components below it are single-writer by construction.
type Core struct {
	mu sync.Mutex

	chainID   chain.ID
	paused    bool
	committee *committee.Committee
	treasury  *treasury.Treasury
	limiter   *limiter.Limiter
	ledger    *ledger.Ledger
	seqNums   map[message.Type]uint64

	log *zap.Logger
}

// RecordTransfer validates a token transfer message, charges its notional
// value against the route's rate limit, and inserts a Pending ledger record.
// Either every effect happens or none does.
func (c *Core) RecordTransfer(m message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Type != message.TypeTokenTransfer {
		return fmt.Errorf("%w: %s", ErrUnexpectedMessageType, m.Type)
	}
	if c.paused {
		metrics.MessagesTotal.WithLabelValues(m.Type.String(), "rejected").Inc()
		return ErrBridgeUnavailable
	}

	key, transfer, err := c.ledger.Validate(m)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues(m.Type.String(), "rejected").Inc()
		return err
	}

	route := chain.Route{Source: m.SourceChain, Destination: transfer.TargetChain}
	if err := c.limiter.CheckAndConsume(route, transfer.TokenID, transfer.Amount); err != nil {
		metrics.MessagesTotal.WithLabelValues(m.Type.String(), "rejected").Inc()
		metrics.LimiterRejections.WithLabelValues(route.String()).Inc()
		return err
	}

	// Validate ran under the same lock, so Insert cannot fail here.
	if err := c.ledger.Insert(m); err != nil {
		return err
	}

	if rl, err := c.limiter.Limit(route); err == nil {
		usage, _ := rl.Accumulated.Float64()
		metrics.LimiterWindowUsage.WithLabelValues(route.String()).Set(usage)
	}

	// The transfer sequence is a high-water mark for emitting new transfers,
	// not a strict gate: replay protection comes from the ledger key.
	if m.SeqNum >= c.seqNums[message.TypeTokenTransfer] {
		c.seqNums[message.TypeTokenTransfer] = m.SeqNum + 1
		metrics.SequenceNum.WithLabelValues(m.Type.String()).Set(float64(m.SeqNum + 1))
	}

	c.observeTransfer(m, transfer)
	c.log.Info("transfer recorded",
		zap.String("key", key.String()),
		zap.String("route", route.String()),
		zap.Uint8("token_id", transfer.TokenID),
		zap.Uint64("amount", transfer.Amount))
	return nil
}

// AttachSignatures verifies a committee signature set over the stored
// transfer's digest and, when the signers' stake reaches quorum, moves the
// record to Approved.
func (c *Core) AttachSignatures(key ledger.Key, signatures [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.ledger.Record(key)
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrTransferNotFound, key)
	}

	stake, err := c.committee.Verify(message.Digest(record.Message), signatures)
	if err != nil {
		metrics.SignatureVerifications.WithLabelValues("invalid").Inc()
		return err
	}
	if stake < c.committee.QuorumThreshold() {
		metrics.SignatureVerifications.WithLabelValues("below_quorum").Inc()
		return fmt.Errorf("%w: stake %d below threshold %d", ErrInsufficientSignatures, stake, c.committee.QuorumThreshold())
	}
	metrics.SignatureVerifications.WithLabelValues("ok").Inc()

	if err := c.ledger.AttachSignatures(key, signatures); err != nil {
		return err
	}

	c.log.Info("transfer approved",
		zap.String("key", key.String()),
		zap.Uint64("stake", stake),
		zap.Int("signatures", len(signatures)))
	return nil
}

// MarkClaimed finalizes an approved transfer once the destination chain has
// released the funds. Claims are refused while the bridge is paused.
func (c *Core) MarkClaimed(key ledger.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return ErrBridgeUnavailable
	}
	if err := c.ledger.MarkClaimed(key); err != nil {
		return err
	}
	c.log.Info("transfer claimed", zap.String("key", key.String()))
	return nil
}

// ProcessGovernance verifies and applies a governance message: blocklist
// update, emergency op, route limit update, or asset price update.
// Governance stays processable while the bridge is paused, otherwise no
// unpause could ever arrive. Checks run in a fixed order - chain id, strict
// sequence number, quorum, then dispatch - and the sequence counter advances
// only after the dispatch fully succeeds.
func (c *Core) ProcessGovernance(m message.Message, signatures [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Type == message.TypeTokenTransfer {
		return fmt.Errorf("%w: token transfers are not governance", ErrUnexpectedMessageType)
	}
	if m.SourceChain != c.chainID {
		metrics.MessagesTotal.WithLabelValues(m.Type.String(), "rejected").Inc()
		return fmt.Errorf("%w: got %s, serving %s", ErrUnexpectedChainID, m.SourceChain, c.chainID)
	}
	if expected := c.seqNums[m.Type]; m.SeqNum != expected {
		metrics.MessagesTotal.WithLabelValues(m.Type.String(), "rejected").Inc()
		return fmt.Errorf("%w: got %d, expected %d for %s", ErrInvalidSequenceNumber, m.SeqNum, expected, m.Type)
	}

	stake, err := c.committee.Verify(message.Digest(m), signatures)
	if err != nil {
		metrics.SignatureVerifications.WithLabelValues("invalid").Inc()
		return err
	}
	if stake < c.committee.QuorumThreshold() {
		metrics.SignatureVerifications.WithLabelValues("below_quorum").Inc()
		return fmt.Errorf("%w: stake %d below threshold %d", ErrInsufficientSignatures, stake, c.committee.QuorumThreshold())
	}
	metrics.SignatureVerifications.WithLabelValues("ok").Inc()

	if err := c.dispatch(m); err != nil {
		metrics.MessagesTotal.WithLabelValues(m.Type.String(), "rejected").Inc()
		return err
	}

	c.seqNums[m.Type]++
	metrics.SequenceNum.WithLabelValues(m.Type.String()).Set(float64(c.seqNums[m.Type]))
	metrics.MessagesTotal.WithLabelValues(m.Type.String(), "accepted").Inc()
	c.log.Info("governance applied",
		zap.String("type", m.Type.String()),
		zap.Uint64("seq_num", m.SeqNum),
		zap.Uint64("stake", stake))
	return nil
}

// dispatch applies a verified governance payload. Each arm either fully
// mutates or returns before touching anything.
func (c *Core) dispatch(m message.Message) error {
	switch m.Type {
	case message.TypeCommitteeBlocklist:
		p, err := m.CommitteeBlocklist()
		if err != nil {
			return err
		}
		return c.committee.UpdateBlocklist(p.Members, p.Op == message.BlocklistAdd)

	case message.TypeEmergencyOp:
		p, err := m.EmergencyOp()
		if err != nil {
			return err
		}
		switch p.Action {
		case message.EmergencyPause:
			if c.paused {
				return ErrBridgeAlreadyPaused
			}
			c.paused = true
			metrics.Paused.Set(1)
		case message.EmergencyUnpause:
			if !c.paused {
				return ErrBridgeNotPaused
			}
			c.paused = false
			metrics.Paused.Set(0)
		}
		return nil

	case message.TypeUpdateRouteLimit:
		p, err := m.UpdateRouteLimit()
		if err != nil {
			return err
		}
		route := p.Route()
		if err := route.Validate(); err != nil {
			return err
		}
		c.limiter.SetLimit(route, p.NewLimit)
		return nil

	case message.TypeUpdateAssetPrice:
		p, err := m.UpdateAssetPrice()
		if err != nil {
			return err
		}
		return c.treasury.SetPrice(p.TokenID, p.NewPrice)

	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedMessageType, m.Type)
	}
}

func (c *Core) observeTransfer(m message.Message, transfer message.TokenTransfer) {
	metrics.MessagesTotal.WithLabelValues(m.Type.String(), "accepted").Inc()
	metrics.TransferAmount.WithLabelValues(fmt.Sprintf("%d", transfer.TokenID)).Observe(float64(transfer.Amount))

	counts := make(map[ledger.Status]int)
	for _, r := range c.ledger.Records() {
		counts[r.Status()]++
	}
	for _, s := range []ledger.Status{ledger.StatusPending, ledger.StatusApproved, ledger.StatusClaimed} {
		metrics.TransfersByStatus.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

// ChainID returns the chain this bridge serves.
func (c *Core) ChainID() chain.ID {
	return c.chainID
}

// IsPaused reports whether the bridge is paused.
func (c *Core) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Status returns the lifecycle state of a transfer record.
func (c *Core) Status(sourceChain chain.ID, seqNum uint64) ledger.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Status(ledger.Key{SourceChain: sourceChain, SeqNum: seqNum})
}

// Transfer returns a copy of a transfer record.
func (c *Core) Transfer(sourceChain chain.ID, seqNum uint64) (ledger.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Record(ledger.Key{SourceChain: sourceChain, SeqNum: seqNum})
}

// Transfers returns copies of all transfer records.
func (c *Core) Transfers() []ledger.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Records()
}

// RouteLimit returns the current state of a route's rate limit.
func (c *Core) RouteLimit(route chain.Route) (limiter.RouteLimit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter.Limit(route)
}

// RouteLimits returns the current state of every configured route limit.
func (c *Core) RouteLimits() []limiter.RouteLimit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter.Limits()
}

// CommitteeMembers returns copies of the registered committee members.
func (c *Core) CommitteeMembers() []committee.Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committee.Members()
}

// AssetPrice returns the notional unit price of a registered token.
func (c *Core) AssetPrice(tokenID uint8) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.treasury.NotionalPrice(tokenID)
}

// Assets returns copies of all registered assets.
func (c *Core) Assets() []treasury.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.treasury.Assets()
}

// SequenceNum returns the next expected sequence number for a message type.
func (c *Core) SequenceNum(t message.Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seqNums[t]
}
