package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		in      string
		want    Pair
		wantErr bool
	}{
		{"BTC/USDT", Pair{"BTC", "USDT"}, false},
		{"btc-usdt", Pair{"BTC", "USDT"}, false},
		{"ETH_USD", Pair{"ETH", "USD"}, false},
		{"BTCUSDT", Pair{}, true},
		{"/USDT", Pair{}, true},
		{"", Pair{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePair(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPair_Renderings(t *testing.T) {
	p := NewPair("btc", "usdt")

	assert.Equal(t, "BTC/USDT", p.String())
	assert.Equal(t, "BTCUSDT", p.Concat())
	assert.Equal(t, "BTC-USDT", p.Dashed())
	assert.Equal(t, "BTC_USDT", p.Underscored())
	assert.False(t, p.IsZero())
	assert.True(t, Pair{}.IsZero())
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in      string
		want    Timeframe
		wantErr bool
	}{
		{"1s", Seconds(1), false},
		{"5m", Minutes(5), false},
		{"4h", Hours(4), false},
		{"1d", Days(1), false},
		{"1w", Weeks(1), false},
		{"1M", Months(1), false},
		{"m", Timeframe{}, true},
		{"0m", Timeframe{}, true},
		{"-5m", Timeframe{}, true},
		{"5x", Timeframe{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeframe(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeframe_RoundTripAndDuration(t *testing.T) {
	tf := Minutes(15)

	assert.Equal(t, "15m", tf.String())
	assert.Equal(t, 15*time.Minute, tf.Duration())
	assert.Equal(t, 15, tf.Minutes())

	assert.Equal(t, 60, Hours(1).Minutes())
	assert.Equal(t, 7*24*time.Hour, Weeks(1).Duration())
}

func TestTimeframe_In(t *testing.T) {
	allowed := []Timeframe{Minutes(1), Minutes(5), Hours(1)}

	assert.True(t, Minutes(5).In(allowed))
	assert.False(t, Minutes(3).In(allowed))
}

func TestTotal(t *testing.T) {
	a, err := ParseDecimal("1.5")
	require.NoError(t, err)
	b, err := ParseDecimal("2.25")
	require.NoError(t, err)

	sum, err := Total([]AssetBalance{
		{Asset: "USDT", Balance: a},
		{Asset: "USDC", Balance: b},
		{Asset: "BTC"}, // nil balance skipped
	})
	require.NoError(t, err)
	assert.Equal(t, "3.75", sum.String())
}

func TestDomainErrors(t *testing.T) {
	tfErr := &UnsupportedTimeframeError{Provided: Minutes(3), Allowed: []Timeframe{Minutes(1), Minutes(5)}}
	assert.Contains(t, tfErr.Error(), "3m")
	assert.Contains(t, tfErr.Error(), "1m, 5m")

	rangeErr := &OutOfRangeError{Param: "limit", Provided: "5000", Allowed: "1..1500"}
	assert.Contains(t, rangeErr.Error(), "limit=5000")

	methodErr := &MethodNotSupportedError{Exchange: "coincheck", Instrument: Perp}
	assert.Contains(t, methodErr.Error(), "coincheck")
	assert.Contains(t, methodErr.Error(), "perp")
}
