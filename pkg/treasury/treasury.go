// Package treasury tracks the tokens the bridge supports: their notional
// (USD-equivalent) unit price and whether they are native to this side of the
// bridge or foreign assets the treasury mints and burns.
package treasury

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Token ids are fixed protocol constants shared with the on-chain contracts.
const (
	TokenNative uint8 = 0
	TokenBTC    uint8 = 1
	TokenETH    uint8 = 2
	TokenUSDC   uint8 = 3
	TokenUSDT   uint8 = 4
)

var (
	// ErrUnsupportedToken is returned for lookups of token ids that were
	// never registered.
	ErrUnsupportedToken = errors.New("unsupported token type")

	// ErrTokenSupplyNonZero is returned when a foreign token is registered
	// with circulating supply, which would leave mints outside treasury
	// control.
	ErrTokenSupplyNonZero = errors.New("token supply non-zero at registration")

	// ErrInvalidNotionalPrice is returned for a zero price, which would make
	// every transfer of the token pass the rate limiter for free.
	ErrInvalidNotionalPrice = errors.New("invalid notional price")

	// ErrTokenAlreadyRegistered is returned for a second registration of the
	// same token id.
	ErrTokenAlreadyRegistered = errors.New("token already registered")
)

// Asset is one supported token.
type Asset struct {
	ID             uint8
	Symbol         string
	Decimals       uint8  // amount units per whole token, as a power of ten
	Price          uint64 // notional units per whole token
	Native         bool
	TypeDescriptor string // on-chain type of the token, empty for native
}

// Treasury is the token registry. It is not safe for concurrent use; callers
// serialize access.
type Treasury struct {
	assets map[uint8]*Asset
}

// New creates an empty treasury.
func New() *Treasury {
	return &Treasury{assets: make(map[uint8]*Asset)}
}

// RegisterForeignToken registers a bridged token. The token must have zero
// circulating supply so the treasury becomes its sole minter.
func (t *Treasury) RegisterForeignToken(id uint8, symbol, typeDescriptor string, decimals uint8, price, circulatingSupply uint64) error {
	if circulatingSupply != 0 {
		return fmt.Errorf("%w: token %d has supply %d", ErrTokenSupplyNonZero, id, circulatingSupply)
	}
	return t.register(&Asset{
		ID:             id,
		Symbol:         symbol,
		Decimals:       decimals,
		Price:          price,
		Native:         false,
		TypeDescriptor: typeDescriptor,
	})
}

// RegisterNativeToken registers the chain's own token. The token exists
// independently of the bridge; only its notional price is tracked here.
func (t *Treasury) RegisterNativeToken(id uint8, symbol string, decimals uint8, price uint64) error {
	return t.register(&Asset{
		ID:       id,
		Symbol:   symbol,
		Decimals: decimals,
		Price:    price,
		Native:   true,
	})
}

func (t *Treasury) register(a *Asset) error {
	if a.Price == 0 {
		return fmt.Errorf("%w: zero price for token %d", ErrInvalidNotionalPrice, a.ID)
	}
	if _, exists := t.assets[a.ID]; exists {
		return fmt.Errorf("%w: token %d", ErrTokenAlreadyRegistered, a.ID)
	}
	t.assets[a.ID] = a
	return nil
}

// NotionalPrice returns the notional unit price of a registered token.
func (t *Treasury) NotionalPrice(id uint8) (uint64, error) {
	a, ok := t.assets[id]
	if !ok {
		return 0, fmt.Errorf("%w: token %d", ErrUnsupportedToken, id)
	}
	return a.Price, nil
}

// SetPrice replaces a token's notional unit price.
func (t *Treasury) SetPrice(id uint8, newPrice uint64) error {
	if newPrice == 0 {
		return fmt.Errorf("%w: zero price for token %d", ErrInvalidNotionalPrice, id)
	}
	a, ok := t.assets[id]
	if !ok {
		return fmt.Errorf("%w: token %d", ErrUnsupportedToken, id)
	}
	a.Price = newPrice
	return nil
}

// NotionalValue converts a raw token amount (in the token's smallest unit) to
// notional units: amount * price / 10^decimals. The arithmetic runs on
// arbitrary-precision decimals so a large amount times a large price cannot
// overflow and silently pass the rate limiter.
func (t *Treasury) NotionalValue(id uint8, amount uint64) (decimal.Decimal, error) {
	a, ok := t.assets[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: token %d", ErrUnsupportedToken, id)
	}
	value := decimal.NewFromUint64(amount).
		Mul(decimal.NewFromUint64(a.Price)).
		Shift(-int32(a.Decimals))
	return value, nil
}

// Asset returns a copy of the registered asset.
func (t *Treasury) Asset(id uint8) (Asset, bool) {
	a, ok := t.assets[id]
	if !ok {
		return Asset{}, false
	}
	return *a, true
}

// Assets returns copies of all registered assets, for inspection and
// persistence.
func (t *Treasury) Assets() []Asset {
	out := make([]Asset, 0, len(t.assets))
	for _, a := range t.assets {
		out = append(out, *a)
	}
	return out
}
