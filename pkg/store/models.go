package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Externally observable transfer states. "deposited" corresponds to the
// core's pending state; approved and claimed map one to one.
const (
	TransferStateDeposited = "deposited"
	TransferStateApproved  = "approved"
	TransferStateClaimed   = "claimed"
)

// CommitteeMemberRow mirrors one committee member
type CommitteeMemberRow struct {
	bun.BaseModel `bun:"table:committee_members"`

	Address     string    `bun:"address,pk"`
	PublicKey   string    `bun:"public_key,notnull"`
	Stake       uint64    `bun:"stake,notnull"`
	MetadataURL string    `bun:"metadata_url"`
	Blocklisted bool      `bun:"blocklisted,notnull,default:false"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

// AssetRow mirrors one supported token
type AssetRow struct {
	bun.BaseModel `bun:"table:assets"`

	TokenID        uint8     `bun:"token_id,pk"`
	Symbol         string    `bun:"symbol,notnull"`
	Decimals       uint8     `bun:"decimals,notnull"`
	Price          uint64    `bun:"price,notnull"`
	Native         bool      `bun:"native,notnull,default:false"`
	TypeDescriptor string    `bun:"type_descriptor"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

// RouteLimitRow mirrors one route's rate-limit window
type RouteLimitRow struct {
	bun.BaseModel `bun:"table:route_limits"`

	Route       string    `bun:"route,pk"`
	Cap         uint64    `bun:"cap,notnull"`
	WindowStart time.Time `bun:"window_start,notnull"`
	Accumulated string    `bun:"accumulated,notnull"` // decimal, stored as text
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

// TransferRow mirrors one transfer record
type TransferRow struct {
	bun.BaseModel `bun:"table:transfers"`

	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	SourceChain      uint8     `bun:"source_chain,notnull"`
	SeqNum           uint64    `bun:"seq_num,notnull"`
	State            string    `bun:"state,notnull"`
	Sender           string    `bun:"sender,notnull"`
	Recipient        string    `bun:"recipient,notnull"`
	DestinationChain uint8     `bun:"destination_chain,notnull"`
	TokenID          uint8     `bun:"token_id,notnull"`
	Amount           uint64    `bun:"amount,notnull"`
	SignatureCount   int       `bun:"signature_count,notnull,default:0"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
}

// SequenceRow mirrors the next expected sequence number for one message type
type SequenceRow struct {
	bun.BaseModel `bun:"table:sequence_state"`

	MessageType string    `bun:"message_type,pk"`
	NextSeq     uint64    `bun:"next_seq,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}
