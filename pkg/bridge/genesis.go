package bridge

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/committee"
	"github.com/chainsafe/bridge-core/pkg/ledger"
	"github.com/chainsafe/bridge-core/pkg/limiter"
	"github.com/chainsafe/bridge-core/pkg/message"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

// Genesis is the initial bridge state: the chain served, the sealed
// committee, supported tokens, and route caps. It is built once at startup,
// typically from the node's config file.
type Genesis struct {
	ChainID         uint8
	QuorumThreshold uint64
	LimitWindow     time.Duration

	Members     []GenesisMember
	Tokens      []GenesisToken
	RouteLimits []GenesisRouteLimit
}

// GenesisMember is one committee member at genesis.
type GenesisMember struct {
	Address     string // 0x-prefixed 20-byte hex
	PublicKey   string // 33-byte compressed secp256k1 key, hex
	Stake       uint64
	MetadataURL string
}

// GenesisToken is one supported token at genesis.
type GenesisToken struct {
	ID             uint8
	Symbol         string
	Decimals       uint8
	Price          uint64
	Native         bool
	TypeDescriptor string
}

// GenesisRouteLimit is one route cap at genesis.
type GenesisRouteLimit struct {
	SendingChain   uint8
	ReceivingChain uint8
	Limit          uint64
}

// Option customizes Core construction.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock injects the limiter clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewCore builds the bridge state machine from genesis: registers and
// activates the committee, registers tokens, and configures route limits.
func NewCore(genesis Genesis, log *zap.Logger, opts ...Option) (*Core, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	chainID, err := chain.FromByte(genesis.ChainID)
	if err != nil {
		return nil, fmt.Errorf("genesis chain id: %w", err)
	}

	comm := committee.New(genesis.QuorumThreshold)
	for _, gm := range genesis.Members {
		pubKey, err := decodeHex(gm.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("genesis member %s public key: %w", gm.Address, err)
		}
		if !common.IsHexAddress(gm.Address) {
			return nil, fmt.Errorf("genesis member address %q is not a hex address", gm.Address)
		}
		if err := comm.Register(committee.Member{
			Address:     common.HexToAddress(gm.Address),
			PublicKey:   pubKey,
			Stake:       gm.Stake,
			MetadataURL: gm.MetadataURL,
		}); err != nil {
			return nil, fmt.Errorf("genesis member %s: %w", gm.Address, err)
		}
	}
	if err := comm.Activate(); err != nil {
		return nil, fmt.Errorf("activate committee: %w", err)
	}

	treas := treasury.New()
	for _, gt := range genesis.Tokens {
		if gt.Native {
			err = treas.RegisterNativeToken(gt.ID, gt.Symbol, gt.Decimals, gt.Price)
		} else {
			err = treas.RegisterForeignToken(gt.ID, gt.Symbol, gt.TypeDescriptor, gt.Decimals, gt.Price, 0)
		}
		if err != nil {
			return nil, fmt.Errorf("genesis token %s: %w", gt.Symbol, err)
		}
	}

	lim := limiter.New(treas, genesis.LimitWindow, o.now)
	for _, gl := range genesis.RouteLimits {
		source, err := chain.FromByte(gl.SendingChain)
		if err != nil {
			return nil, fmt.Errorf("genesis route limit sending chain: %w", err)
		}
		dest, err := chain.FromByte(gl.ReceivingChain)
		if err != nil {
			return nil, fmt.Errorf("genesis route limit receiving chain: %w", err)
		}
		route := chain.Route{Source: source, Destination: dest}
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("genesis route limit: %w", err)
		}
		lim.SetLimit(route, gl.Limit)
	}

	seqNums := make(map[message.Type]uint64, len(message.Types()))
	for _, t := range message.Types() {
		seqNums[t] = 0
	}

	log.Info("bridge core initialized",
		zap.String("chain", chainID.String()),
		zap.Int("committee_members", len(genesis.Members)),
		zap.Int("tokens", len(genesis.Tokens)),
		zap.Int("route_limits", len(genesis.RouteLimits)))

	return &Core{
		chainID:   chainID,
		committee: comm,
		treasury:  treas,
		limiter:   lim,
		ledger:    ledger.New(),
		seqNums:   seqNums,
		log:       log,
	}, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}
