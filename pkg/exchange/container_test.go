package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/internal/transport"
)

func TestNew_ConstructsKnownVenues(t *testing.T) {
	tr := transport.NewClient()

	for _, name := range []string{"binance", "bybit", "kucoin", "mexc"} {
		ex, err := New(name, tr)
		require.NoError(t, err, name)
		assert.Equal(t, name, ex.Name())
		assert.False(t, ex.IsAuthenticated(), name)
	}

	_, err := New("hyperliquid", tr)
	assert.Error(t, err)
}

func TestNew_AuthFlowsThroughInterface(t *testing.T) {
	ex, err := New("binance", transport.NewClient())
	require.NoError(t, err)

	ex.Auth("key", "secret")
	assert.True(t, ex.IsAuthenticated())
}

func TestContainer_RegisterGetUnregister(t *testing.T) {
	tr := transport.NewClient()
	c := NewContainer()

	ex, err := New("bybit", tr)
	require.NoError(t, err)
	c.Register("bybit", ex)

	got, err := c.Get("bybit")
	require.NoError(t, err)
	assert.Equal(t, "bybit", got.Name())
	assert.True(t, c.Exists("bybit"))

	c.Unregister("bybit")
	assert.False(t, c.Exists("bybit"))
	_, err = c.Get("bybit")
	assert.Error(t, err)
}

func TestNewDefaultContainer_HoldsEveryUnifiedVenue(t *testing.T) {
	c := NewDefaultContainer(transport.NewClient())

	assert.ElementsMatch(t, []string{"binance", "bybit", "kucoin", "mexc"}, c.Names())
}
