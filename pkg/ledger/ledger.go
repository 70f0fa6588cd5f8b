// Package ledger keeps the transfer records of the bridge: one entry per
// (source chain, sequence number), moving Pending -> Approved -> Claimed and
// never deleted, so the ledger doubles as an audit trail.
package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/message"
)

var (
	// ErrZeroValue is returned for a transfer of amount zero.
	ErrZeroValue = errors.New("token value is zero")

	// ErrInvalidEVMAddress is returned when a transfer targets an
	// Ethereum-family chain with an address that is not exactly 20 bytes.
	ErrInvalidEVMAddress = errors.New("invalid evm address")

	// ErrDuplicateTransfer is returned when a (source chain, seq) key is
	// inserted twice.
	ErrDuplicateTransfer = errors.New("duplicate transfer")

	// ErrTransferNotFound is returned for operations on unknown keys.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrTransferNotApproved is returned when a claim arrives before a
	// quorum signature set.
	ErrTransferNotApproved = errors.New("transfer not approved")

	// ErrTransferClaimed is returned for mutations of a claimed record.
	ErrTransferClaimed = errors.New("transfer already claimed")
)

// Status is the lifecycle state of one transfer record.
type Status uint8

const (
	StatusNotFound Status = iota
	StatusPending
	StatusApproved
	StatusClaimed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusClaimed:
		return "claimed"
	default:
		return "not_found"
	}
}

// Key identifies a transfer record.
type Key struct {
	SourceChain chain.ID
	SeqNum      uint64
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.SourceChain, k.SeqNum)
}

// Record is one transfer and its approval state. A nil signature set means
// the transfer is still pending; a non-nil set means a quorum approved it.
type Record struct {
	Message    message.Message
	Transfer   message.TokenTransfer
	Signatures [][]byte
	Claimed    bool
}

// Status derives the record's lifecycle state.
func (r Record) Status() Status {
	switch {
	case r.Claimed:
		return StatusClaimed
	case r.Signatures != nil:
		return StatusApproved
	default:
		return StatusPending
	}
}

// Ledger is the transfer record map. It is not safe for concurrent use;
// callers serialize access.
type Ledger struct {
	records map[Key]*Record
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{records: make(map[Key]*Record)}
}

// Validate checks a token transfer message against the ledger without
// mutating it: payload well-formedness, non-zero amount, EVM address length,
// route allow-list, and key uniqueness. On success it returns the record key
// and decoded transfer.
func (l *Ledger) Validate(m message.Message) (Key, message.TokenTransfer, error) {
	key := Key{SourceChain: m.SourceChain, SeqNum: m.SeqNum}

	transfer, err := m.TokenTransfer()
	if err != nil {
		return key, transfer, err
	}
	if transfer.Amount == 0 {
		return key, transfer, ErrZeroValue
	}
	if transfer.TargetChain.IsEVM() && len(transfer.TargetAddress) != common.AddressLength {
		return key, transfer, fmt.Errorf("%w: %d bytes", ErrInvalidEVMAddress, len(transfer.TargetAddress))
	}
	route := chain.Route{Source: m.SourceChain, Destination: transfer.TargetChain}
	if err := route.Validate(); err != nil {
		return key, transfer, err
	}
	if _, exists := l.records[key]; exists {
		return key, transfer, fmt.Errorf("%w: %s", ErrDuplicateTransfer, key)
	}
	return key, transfer, nil
}

// Insert validates a token transfer message and creates its Pending record.
// Nothing is stored when validation fails.
func (l *Ledger) Insert(m message.Message) error {
	key, transfer, err := l.Validate(m)
	if err != nil {
		return err
	}
	l.records[key] = &Record{Message: m, Transfer: transfer}
	return nil
}

// AttachSignatures stores an approved signature set on a pending record,
// moving it to Approved. The caller verifies quorum before attaching.
// Re-attaching to an approved record replaces the set; claimed records are
// immutable.
func (l *Ledger) AttachSignatures(key Key, signatures [][]byte) error {
	r, ok := l.records[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransferNotFound, key)
	}
	if r.Claimed {
		return fmt.Errorf("%w: %s", ErrTransferClaimed, key)
	}
	if signatures == nil {
		signatures = [][]byte{}
	}
	r.Signatures = signatures
	return nil
}

// MarkClaimed finalizes an approved record. Claimed is terminal; claiming
// twice or claiming a pending record fails.
func (l *Ledger) MarkClaimed(key Key) error {
	r, ok := l.records[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransferNotFound, key)
	}
	if r.Claimed {
		return fmt.Errorf("%w: %s", ErrTransferClaimed, key)
	}
	if r.Signatures == nil {
		return fmt.Errorf("%w: %s", ErrTransferNotApproved, key)
	}
	r.Claimed = true
	return nil
}

// Status returns the lifecycle state for a key, StatusNotFound for unknown
// keys.
func (l *Ledger) Status(key Key) Status {
	r, ok := l.records[key]
	if !ok {
		return StatusNotFound
	}
	return r.Status()
}

// Record returns a copy of the record stored under key.
func (l *Ledger) Record(key Key) (Record, bool) {
	r, ok := l.records[key]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Records returns copies of all records, for inspection and persistence.
func (l *Ledger) Records() []Record {
	out := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, *r)
	}
	return out
}
