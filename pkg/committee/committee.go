// Package committee implements the weighted validator committee that
// authorizes bridge actions. Members carry stake out of a fixed total;
// signatures are 65-byte recoverable secp256k1 signatures over a message
// digest, and verification sums the stake behind a signature set.
package committee

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TotalStake is the stake the full committee must hold before activation.
const TotalStake uint64 = 10_000

// DefaultQuorumThreshold is a simple majority of TotalStake.
const DefaultQuorumThreshold uint64 = 5_001

var (
	// ErrCommitteeInitiated is returned when registration is attempted after
	// the committee has been activated.
	ErrCommitteeInitiated = errors.New("committee already initiated")

	// ErrCommitteeNotInitiated is returned when verification or blocklist
	// updates are attempted before activation.
	ErrCommitteeNotInitiated = errors.New("committee not initiated")

	// ErrInvalidTotalStake is returned by Activate when member stakes do not
	// sum to TotalStake.
	ErrInvalidTotalStake = errors.New("member stakes do not sum to the required total")

	// ErrInvalidMember is returned for a registration whose public key,
	// address, or stake is unusable.
	ErrInvalidMember = errors.New("invalid committee member")

	// ErrRecoverFailed is returned when a signature does not recover to any
	// public key.
	ErrRecoverFailed = errors.New("signature recovery failed")

	// ErrSignerNotInCommittee is returned when a recovered signer is unknown,
	// blocklisted, or signs with a key other than the one registered.
	ErrSignerNotInCommittee = errors.New("signer not in committee")

	// ErrDuplicateSigner is returned when one member appears twice in a
	// signature set.
	ErrDuplicateSigner = errors.New("duplicate signer")
)

// Member is one committee validator.
type Member struct {
	Address     common.Address
	PublicKey   []byte // 33-byte compressed secp256k1 public key
	Stake       uint64
	MetadataURL string
	Blocklisted bool
}

// Committee is the registered validator set. It is not safe for concurrent
// use; callers serialize access.
type Committee struct {
	members         map[common.Address]*Member
	quorumThreshold uint64
	activated       bool
}

// New creates an empty, unactivated committee. A zero quorumThreshold selects
// DefaultQuorumThreshold.
func New(quorumThreshold uint64) *Committee {
	if quorumThreshold == 0 {
		quorumThreshold = DefaultQuorumThreshold
	}
	return &Committee{
		members:         make(map[common.Address]*Member),
		quorumThreshold: quorumThreshold,
	}
}

// QuorumThreshold returns the stake a signature set must reach.
func (c *Committee) QuorumThreshold() uint64 {
	return c.quorumThreshold
}

// Activated reports whether the committee has been sealed.
func (c *Committee) Activated() bool {
	return c.activated
}

// Register adds a member. Only permitted before activation. The member's
// address must be the one derived from its public key.
func (c *Committee) Register(m Member) error {
	if c.activated {
		return ErrCommitteeInitiated
	}
	if m.Stake == 0 {
		return fmt.Errorf("%w: zero stake for %s", ErrInvalidMember, m.Address)
	}
	pub, err := crypto.DecompressPubkey(m.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: bad public key for %s: %v", ErrInvalidMember, m.Address, err)
	}
	if derived := crypto.PubkeyToAddress(*pub); derived != m.Address {
		return fmt.Errorf("%w: address %s does not match public key (derived %s)", ErrInvalidMember, m.Address, derived)
	}
	if _, exists := c.members[m.Address]; exists {
		return fmt.Errorf("%w: %s already registered", ErrInvalidMember, m.Address)
	}

	stored := m
	stored.PublicKey = append([]byte(nil), m.PublicKey...)
	c.members[m.Address] = &stored
	return nil
}

// Activate seals the committee. Member stakes must sum to exactly TotalStake.
func (c *Committee) Activate() error {
	if c.activated {
		return ErrCommitteeInitiated
	}
	var sum uint64
	for _, m := range c.members {
		sum += m.Stake
	}
	if sum != TotalStake {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidTotalStake, sum, TotalStake)
	}
	c.activated = true
	return nil
}

// Member returns a copy of the member registered under addr.
func (c *Committee) Member(addr common.Address) (Member, bool) {
	m, ok := c.members[addr]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// Members returns copies of all members, for inspection and persistence.
func (c *Committee) Members() []Member {
	out := make([]Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, *m)
	}
	return out
}

// UpdateBlocklist sets the blocklisted flag on the given members. Every
// address must belong to a registered member; on any unknown address nothing
// is changed. Only permitted after activation.
func (c *Committee) UpdateBlocklist(addrs []common.Address, blocklisted bool) error {
	if !c.activated {
		return ErrCommitteeNotInitiated
	}
	for _, addr := range addrs {
		if _, ok := c.members[addr]; !ok {
			return fmt.Errorf("%w: %s", ErrSignerNotInCommittee, addr)
		}
	}
	for _, addr := range addrs {
		c.members[addr].Blocklisted = blocklisted
	}
	return nil
}

// Verify checks a set of 65-byte [R || S || V] signatures over digest and
// returns the total stake behind them. Each signature must recover to a
// registered, non-blocklisted member whose registered public key matches the
// recovered one, and no member may sign twice. Verify does not apply the
// quorum threshold; callers compare the returned stake against
// QuorumThreshold.
func (c *Committee) Verify(digest common.Hash, signatures [][]byte) (uint64, error) {
	if !c.activated {
		return 0, ErrCommitteeNotInitiated
	}

	seen := make(map[common.Address]struct{}, len(signatures))
	var stake uint64
	for i, sig := range signatures {
		if len(sig) != crypto.SignatureLength {
			return 0, fmt.Errorf("%w: signature %d has length %d", ErrRecoverFailed, i, len(sig))
		}

		// Accept both 0/1 and Ethereum-style 27/28 recovery ids.
		normalized := append([]byte(nil), sig...)
		if normalized[crypto.RecoveryIDOffset] >= 27 {
			normalized[crypto.RecoveryIDOffset] -= 27
		}

		recovered, err := crypto.SigToPub(digest.Bytes(), normalized)
		if err != nil {
			return 0, fmt.Errorf("%w: signature %d: %v", ErrRecoverFailed, i, err)
		}
		signer := crypto.PubkeyToAddress(*recovered)

		member, ok := c.members[signer]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrSignerNotInCommittee, signer)
		}
		if member.Blocklisted {
			return 0, fmt.Errorf("%w: %s is blocklisted", ErrSignerNotInCommittee, signer)
		}
		if string(crypto.CompressPubkey(recovered)) != string(member.PublicKey) {
			return 0, fmt.Errorf("%w: %s signed with an unregistered key", ErrSignerNotInCommittee, signer)
		}
		if _, dup := seen[signer]; dup {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateSigner, signer)
		}
		seen[signer] = struct{}{}
		stake += member.Stake
	}
	return stake, nil
}
