package binance

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bytedance/sonic"

	"tradewire/pkg/core"
)

// wsHandler frames Binance market streams: SUBSCRIBE/UNSUBSCRIBE control
// messages, combined-stream envelopes, and raw event payloads.
type wsHandler struct {
	opts Options
}

var errNoWsURL = errors.New("no Binance WebSocket URL configured")

func (h *wsHandler) Config() (core.WsConfig, error) {
	cfg := h.opts.WsConfig
	if h.opts.WSURL != WSNone {
		base, err := h.wsBase()
		if err != nil {
			return core.WsConfig{}, err
		}
		cfg.URL = base + "/ws"
	}
	if cfg.URL == "" {
		return core.WsConfig{}, errNoWsURL
	}
	if len(h.opts.WsTopics) > 0 {
		cfg.Topics = h.opts.WsTopics
	}
	return cfg, nil
}

func (h *wsHandler) wsBase() (string, error) {
	switch h.opts.WSURL {
	case WSSpot:
		if h.opts.Testnet {
			return "wss://testnet.binance.vision", nil
		}
		return "wss://stream.binance.com:9443", nil
	case WSFuturesUsdM:
		if h.opts.Testnet {
			return "wss://stream.binancefuture.com", nil
		}
		return "wss://fstream.binance.com", nil
	case WSFuturesCoinM:
		if h.opts.Testnet {
			return "wss://dstream.binancefuture.com", nil
		}
		return "wss://dstream.binance.com", nil
	default:
		return "", errNoWsURL
	}
}

// HandleAuth is a no-op: Binance authenticates user streams through a REST
// listen key carried in the URL, not through frames.
func (h *wsHandler) HandleAuth() ([][]byte, error) {
	return nil, nil
}

func (h *wsHandler) HandleSubscribe(topics []string) ([][]byte, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	frame, err := sonic.Marshal(map[string]any{
		"method": "SUBSCRIBE",
		"params": topics,
		"id":     1,
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (h *wsHandler) HandleMessage(raw []byte) (core.Classified, error) {
	var envelope struct {
		ID     *int64          `json:"id"`
		Result json.RawMessage `json:"result"`
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`

		EventType string `json:"e"`
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return core.Classified{}, err
	}

	// Control responses carry an id and no payload.
	if envelope.ID != nil {
		return core.Classified{}, nil
	}

	ev := core.ContentEvent{}
	payload := raw
	if envelope.Stream != "" {
		ev.Topic = envelope.Stream
		payload = envelope.Data
		var inner struct {
			EventType string `json:"e"`
			EventTime int64  `json:"E"`
		}
		if err := sonic.Unmarshal(envelope.Data, &inner); err == nil {
			envelope.EventType = inner.EventType
			envelope.EventTime = inner.EventTime
		}
	} else {
		ev.Topic = envelope.EventType
	}

	ev.EventType = envelope.EventType
	if envelope.EventTime > 0 {
		ev.Time = time.UnixMilli(envelope.EventTime)
	}
	ev.Data = payload
	return core.Classified{Content: &ev}, nil
}
