package limiter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

var testRoute = chain.Route{Source: chain.NativeMainnet, Destination: chain.EthMainnet}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time          { return c.current }
func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	tr := treasury.New()
	// 1 unit of token 1 = 1 notional unit (decimals 0, price 1).
	require.NoError(t, tr.RegisterForeignToken(treasury.TokenBTC, "BTC", "0xbtc::btc::BTC", 0, 1, 0))

	clock := &fakeClock{current: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	l := New(tr, 24*time.Hour, clock.Now)
	l.SetLimit(testRoute, 1_000)
	return l, clock
}

func TestCheckAndConsumeAccumulates(t *testing.T) {
	l, _ := newTestLimiter(t)

	require.NoError(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 400))
	require.NoError(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 600))

	err := l.CheckAndConsume(testRoute, treasury.TokenBTC, 1)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	rl, err := l.Limit(testRoute)
	require.NoError(t, err)
	assert.True(t, rl.Accumulated.Equal(decimal.NewFromInt(1_000)),
		"rejected transfer must not consume allowance, got %s", rl.Accumulated)
}

func TestWindowResetRestoresAllowance(t *testing.T) {
	l, clock := newTestLimiter(t)

	require.NoError(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1_000))
	assert.ErrorIs(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1), ErrLimitExceeded)

	clock.Advance(23 * time.Hour)
	assert.ErrorIs(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1), ErrLimitExceeded)

	clock.Advance(time.Hour)
	assert.NoError(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1_000))
}

func TestSingleTransferAboveCapNeverPasses(t *testing.T) {
	l, clock := newTestLimiter(t)

	assert.ErrorIs(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1_001), ErrLimitExceeded)

	clock.Advance(48 * time.Hour)
	assert.ErrorIs(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1_001), ErrLimitExceeded)
}

func TestSetLimitEffectiveInOpenWindow(t *testing.T) {
	l, _ := newTestLimiter(t)

	require.NoError(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 900))

	// Lowering the cap below current usage blocks further transfers but does
	// not roll anything back.
	l.SetLimit(testRoute, 500)
	assert.ErrorIs(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1), ErrLimitExceeded)

	l.SetLimit(testRoute, 2_000)
	assert.NoError(t, l.CheckAndConsume(testRoute, treasury.TokenBTC, 1_000))
}

func TestUnconfiguredRoute(t *testing.T) {
	l, _ := newTestLimiter(t)
	other := chain.Route{Source: chain.EthMainnet, Destination: chain.NativeMainnet}

	assert.ErrorIs(t, l.CheckAndConsume(other, treasury.TokenBTC, 1), ErrLimitNotConfigured)
	_, err := l.Limit(other)
	assert.ErrorIs(t, err, ErrLimitNotConfigured)
}

func TestUnknownTokenConsumesNothing(t *testing.T) {
	l, _ := newTestLimiter(t)

	err := l.CheckAndConsume(testRoute, 99, 1)
	assert.ErrorIs(t, err, treasury.ErrUnsupportedToken)

	rl, err := l.Limit(testRoute)
	require.NoError(t, err)
	assert.True(t, rl.Accumulated.IsZero())
}
