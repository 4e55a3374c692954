package mexc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWsHandler_Config(t *testing.T) {
	h := &wsHandler{opts: DefaultOptions().merged([]Option{
		WithWsTopics("ticker:BTC_USDT"),
	})}

	cfg, err := h.Config()
	require.NoError(t, err)
	assert.Equal(t, "wss://contract.mexc.com/edge", cfg.URL)
	assert.Equal(t, []string{"ticker:BTC_USDT"}, cfg.Topics)
}

func TestWsHandler_SubscribeFrames(t *testing.T) {
	h := &wsHandler{}

	frames, err := h.HandleSubscribe([]string{"ticker:BTC_USDT", "tickers"})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"method":"sub.ticker","param":{"symbol":"BTC_USDT"}}`, string(frames[0]))
	assert.JSONEq(t, `{"method":"sub.tickers"}`, string(frames[1]))
}

func TestWsHandler_ProtocolFrames(t *testing.T) {
	h := &wsHandler{}

	for _, frame := range []string{
		`{"channel":"rs.sub.ticker","data":"success"}`,
		`{"channel":"pong","data":1718000000}`,
		`{"channel":"clock","data":"1718000000"}`,
	} {
		classified, err := h.HandleMessage([]byte(frame))
		require.NoError(t, err, frame)
		assert.Nil(t, classified.Content, frame)
		assert.Empty(t, classified.Replies, frame)
	}
}

func TestWsHandler_ContentFrame(t *testing.T) {
	h := &wsHandler{}

	raw := []byte(`{"channel":"push.ticker","symbol":"BTC_USDT","ts":1718000000123,"data":{"lastPrice":65000.1}}`)
	classified, err := h.HandleMessage(raw)
	require.NoError(t, err)
	require.NotNil(t, classified.Content)

	assert.Equal(t, "ticker:BTC_USDT", classified.Content.Topic)
	assert.Equal(t, "push.ticker", classified.Content.EventType)
	assert.Equal(t, time.UnixMilli(1718000000123), classified.Content.Time)
	assert.JSONEq(t, `{"lastPrice":65000.1}`, string(classified.Content.Data))
}

func TestWsHandler_ErrorAndUnknownFrames(t *testing.T) {
	h := &wsHandler{}

	_, err := h.HandleMessage([]byte(`{"channel":"rs.error","data":"subscribe failed"}`))
	assert.Error(t, err)

	_, err = h.HandleMessage([]byte(`{"channel":"mystery"}`))
	assert.Error(t, err)
}
