// Package chain defines the chain identifiers the bridge connects and the
// allow-list of routes between them.
package chain

import (
	"errors"
	"fmt"
)

// ID identifies a chain on either side of the bridge. The set is fixed at
// compile time; wire messages carry the raw byte value.
type ID uint8

const (
	NativeMainnet ID = 0
	NativeTestnet ID = 1
	NativeLocal   ID = 2

	EthMainnet ID = 10
	EthSepolia ID = 11
	EthLocal   ID = 12
)

// ErrUnknownChain is returned when a byte value does not map to a known chain.
var ErrUnknownChain = errors.New("unknown chain id")

// ErrInvalidRoute is returned for (source, destination) pairs outside the
// route allow-list.
var ErrInvalidRoute = errors.New("invalid bridge route")

// FromByte converts a wire byte into a chain ID.
func FromByte(b uint8) (ID, error) {
	id := ID(b)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownChain, b)
	}
	return id, nil
}

// Valid reports whether the ID is a known chain.
func (id ID) Valid() bool {
	switch id {
	case NativeMainnet, NativeTestnet, NativeLocal, EthMainnet, EthSepolia, EthLocal:
		return true
	}
	return false
}

// IsEVM reports whether the chain is on the Ethereum side of the bridge.
// EVM-side targets must be 20-byte addresses.
func (id ID) IsEVM() bool {
	switch id {
	case EthMainnet, EthSepolia, EthLocal:
		return true
	}
	return false
}

func (id ID) String() string {
	switch id {
	case NativeMainnet:
		return "native-mainnet"
	case NativeTestnet:
		return "native-testnet"
	case NativeLocal:
		return "native-local"
	case EthMainnet:
		return "eth-mainnet"
	case EthSepolia:
		return "eth-sepolia"
	case EthLocal:
		return "eth-local"
	default:
		return fmt.Sprintf("chain(%d)", uint8(id))
	}
}

// Route is an ordered (source, destination) pair of chains.
type Route struct {
	Source      ID
	Destination ID
}

// Bridging is only supported between a native-side chain and the EVM-side
// chain of the same network class, in either direction. Mixing classes
// (e.g. testnet funds onto mainnet) is never allowed.
var allowedRoutes = map[Route]struct{}{
	{NativeMainnet, EthMainnet}: {},
	{EthMainnet, NativeMainnet}: {},
	{NativeTestnet, EthSepolia}: {},
	{EthSepolia, NativeTestnet}: {},
	{NativeLocal, EthLocal}:     {},
	{EthLocal, NativeLocal}:     {},
}

// Valid reports whether the route is on the allow-list.
func (r Route) Valid() bool {
	_, ok := allowedRoutes[r]
	return ok
}

// Validate returns ErrInvalidRoute for routes outside the allow-list.
func (r Route) Validate() error {
	if !r.Valid() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRoute, r.Source, r.Destination)
	}
	return nil
}

// Reverse returns the route in the opposite direction.
func (r Route) Reverse() Route {
	return Route{Source: r.Destination, Destination: r.Source}
}

func (r Route) String() string {
	return fmt.Sprintf("%s->%s", r.Source, r.Destination)
}

// Routes returns the full route allow-list. The slice is freshly allocated.
func Routes() []Route {
	routes := make([]Route, 0, len(allowedRoutes))
	for r := range allowedRoutes {
		routes = append(routes, r)
	}
	return routes
}
