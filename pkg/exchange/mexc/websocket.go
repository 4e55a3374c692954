package mexc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"tradewire/pkg/core"
)

// wsHandler frames MEXC contract streams. Topics take the form
// "channel" or "channel:SYMBOL", subscribed as {"method":"sub.channel",
// "param":{"symbol":SYMBOL}}. Inbound frames are discriminated on the
// "channel" field: push.* carries content, rs.* and pong are protocol
// acknowledgements.
// https://mexcdevelop.github.io/apidocs/contract_v1_en/#websocket-api
type wsHandler struct {
	opts Options
}

func (h *wsHandler) Config() (core.WsConfig, error) {
	cfg := h.opts.WsConfig
	if cfg.URL == "" {
		cfg.URL = "wss://contract.mexc.com/edge"
	}
	if len(h.opts.WsTopics) > 0 {
		cfg.Topics = h.opts.WsTopics
	}
	return cfg, nil
}

// HandleAuth is a no-op; private contract streams use a login frame that is
// not implemented here.
func (h *wsHandler) HandleAuth() ([][]byte, error) {
	return nil, nil
}

func (h *wsHandler) HandleSubscribe(topics []string) ([][]byte, error) {
	frames := make([][]byte, 0, len(topics))
	for _, topic := range topics {
		channel, symbol, _ := strings.Cut(topic, ":")
		msg := map[string]any{"method": "sub." + channel}
		if symbol != "" {
			msg["param"] = map[string]string{"symbol": symbol}
		}
		frame, err := sonic.Marshal(msg)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (h *wsHandler) HandleMessage(raw []byte) (core.Classified, error) {
	var envelope struct {
		Channel string          `json:"channel"`
		Symbol  string          `json:"symbol"`
		Data    json.RawMessage `json:"data"`
		Ts      int64           `json:"ts"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return core.Classified{}, err
	}

	switch {
	case envelope.Channel == "pong" || envelope.Channel == "clock":
		return core.Classified{}, nil
	case envelope.Channel == "rs.error":
		return core.Classified{}, fmt.Errorf("server error frame: %s", core.TruncateBody(raw))
	case strings.HasPrefix(envelope.Channel, "rs."):
		return core.Classified{}, nil
	case strings.HasPrefix(envelope.Channel, "push."):
		topic := strings.TrimPrefix(envelope.Channel, "push.")
		if envelope.Symbol != "" {
			topic += ":" + envelope.Symbol
		}
		ev := core.ContentEvent{
			Topic:     topic,
			EventType: envelope.Channel,
			Data:      envelope.Data,
		}
		if envelope.Ts > 0 {
			ev.Time = time.UnixMilli(envelope.Ts)
		}
		return core.Classified{Content: &ev}, nil
	default:
		return core.Classified{}, fmt.Errorf("unrecognized frame channel %q", envelope.Channel)
	}
}
