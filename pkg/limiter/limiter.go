// Package limiter enforces per-route rolling-window caps on the notional
// value transferred across the bridge. Token amounts are converted to
// notional units through treasury prices before they count against a cap.
package limiter

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/bridge-core/pkg/chain"
)

// DefaultWindow is the rolling-window length when none is configured.
const DefaultWindow = 24 * time.Hour

var (
	// ErrLimitExceeded is returned when a transfer's notional value would
	// push the route past its cap in the current window.
	ErrLimitExceeded = errors.New("route transfer limit exceeded")

	// ErrLimitNotConfigured is returned for a route without a configured cap.
	ErrLimitNotConfigured = errors.New("route limit not configured")
)

// PriceSource converts a token amount to notional units.
type PriceSource interface {
	NotionalValue(tokenID uint8, amount uint64) (decimal.Decimal, error)
}

// RouteLimit is the limiter's view of one route.
type RouteLimit struct {
	Route       chain.Route
	Cap         uint64 // notional units per window
	WindowStart time.Time
	Accumulated decimal.Decimal // notional consumed in the current window
}

// Limiter tracks per-route windows. It is not safe for concurrent use;
// callers serialize access. The clock is injected so window expiry is
// testable.
type Limiter struct {
	prices PriceSource
	window time.Duration
	now    func() time.Time
	routes map[chain.Route]*RouteLimit
}

// New creates a limiter over the given price source. Zero window selects
// DefaultWindow; nil now selects time.Now.
func New(prices PriceSource, window time.Duration, now func() time.Time) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		prices: prices,
		window: window,
		now:    now,
		routes: make(map[chain.Route]*RouteLimit),
	}
}

// SetLimit replaces the cap on a route, effective immediately in the open
// window. First configuration of a route starts its window at the current
// time.
func (l *Limiter) SetLimit(route chain.Route, cap uint64) {
	rl, ok := l.routes[route]
	if !ok {
		l.routes[route] = &RouteLimit{
			Route:       route,
			Cap:         cap,
			WindowStart: l.now(),
			Accumulated: decimal.Zero,
		}
		return
	}
	rl.Cap = cap
}

// Limit returns a copy of the route's current state.
func (l *Limiter) Limit(route chain.Route) (RouteLimit, error) {
	rl, ok := l.routes[route]
	if !ok {
		return RouteLimit{}, fmt.Errorf("%w: %s", ErrLimitNotConfigured, route)
	}
	l.advance(rl)
	return *rl, nil
}

// Limits returns copies of every configured route limit.
func (l *Limiter) Limits() []RouteLimit {
	out := make([]RouteLimit, 0, len(l.routes))
	for _, rl := range l.routes {
		l.advance(rl)
		out = append(out, *rl)
	}
	return out
}

// CheckAndConsume converts amount to notional units and counts it against the
// route's window. It either consumes the full value and returns nil, or
// consumes nothing and returns an error. A single transfer whose notional
// value alone exceeds the cap can never pass.
func (l *Limiter) CheckAndConsume(route chain.Route, tokenID uint8, amount uint64) error {
	rl, ok := l.routes[route]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLimitNotConfigured, route)
	}

	value, err := l.prices.NotionalValue(tokenID, amount)
	if err != nil {
		return err
	}

	l.advance(rl)

	next := rl.Accumulated.Add(value)
	if next.GreaterThan(decimal.NewFromUint64(rl.Cap)) {
		return fmt.Errorf("%w: %s would reach %s of cap %d", ErrLimitExceeded, route, next, rl.Cap)
	}
	rl.Accumulated = next
	return nil
}

// advance resets the window when the current time has moved past its end.
func (l *Limiter) advance(rl *RouteLimit) {
	now := l.now()
	if now.Sub(rl.WindowStart) >= l.window {
		rl.WindowStart = now
		rl.Accumulated = decimal.Zero
	}
}
