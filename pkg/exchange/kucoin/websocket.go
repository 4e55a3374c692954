package kucoin

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"tradewire/pkg/core"
)

// wsHandler frames Kucoin streams. Frames are discriminated on the "type"
// field: welcome, ack, and pong are protocol traffic; message carries content
// under topic/subject/data.
type wsHandler struct {
	opts Options
}

func (h *wsHandler) Config() (core.WsConfig, error) {
	cfg := h.opts.WsConfig
	if cfg.URL == "" {
		cfg.URL = h.wsBase()
	}
	if len(h.opts.WsTopics) > 0 {
		cfg.Topics = h.opts.WsTopics
	}
	return cfg, nil
}

func (h *wsHandler) wsBase() string {
	switch h.opts.WSURL {
	case WSFutures:
		if h.opts.Testnet {
			return "wss://ws-api-sandbox-futures.kucoin.com"
		}
		return "wss://ws-api-futures.kucoin.com"
	default:
		if h.opts.Testnet {
			return "wss://ws-api-sandbox-spot.kucoin.com"
		}
		return "wss://ws-api-spot.kucoin.com"
	}
}

// HandleAuth is a no-op; Kucoin private streams authenticate through a REST
// bullet token carried in the connection URL.
func (h *wsHandler) HandleAuth() ([][]byte, error) {
	return nil, nil
}

func (h *wsHandler) HandleSubscribe(topics []string) ([][]byte, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	// Kucoin rejects subscribe requests without an id; the server echoes it
	// back in the ack frame.
	frame, err := sonic.Marshal(map[string]any{
		"id":       "1",
		"type":     "subscribe",
		"topic":    strings.Join(topics, ","),
		"response": true,
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (h *wsHandler) HandleMessage(raw []byte) (core.Classified, error) {
	var envelope struct {
		Type    string          `json:"type"`
		Topic   string          `json:"topic"`
		Subject string          `json:"subject"`
		Data    json.RawMessage `json:"data"`
		Time    int64           `json:"time"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return core.Classified{}, err
	}

	switch envelope.Type {
	case "welcome", "ack", "pong":
		return core.Classified{}, nil
	case "ping":
		frame, err := sonic.Marshal(map[string]any{"type": "pong"})
		if err != nil {
			return core.Classified{}, err
		}
		return core.Classified{Replies: [][]byte{frame}}, nil
	case "error":
		return core.Classified{}, fmt.Errorf("server error frame: %s", core.TruncateBody(raw))
	case "message":
		ev := core.ContentEvent{
			Topic:     envelope.Topic,
			EventType: envelope.Subject,
			Data:      envelope.Data,
		}
		if envelope.Time > 0 {
			ev.Time = time.UnixMilli(envelope.Time)
		}
		return core.Classified{Content: &ev}, nil
	default:
		return core.Classified{}, fmt.Errorf("unrecognized frame type %q", envelope.Type)
	}
}
