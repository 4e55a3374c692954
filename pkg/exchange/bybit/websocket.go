package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"tradewire/pkg/core"
)

// wsAuthTTL is how long the signed expiry on the auth frame stays valid.
const wsAuthTTL = time.Second

// wsHandler frames Bybit streams. When authentication is on, the topic
// subscription waits for the auth acknowledgement instead of racing it.
type wsHandler struct {
	opts Options
	now  func() time.Time

	// authed flips when the server acknowledges the auth frame. Reset on
	// every dial so reconnects re-run the full handshake.
	authed atomic.Bool
}

func newWsHandler(opts Options) *wsHandler {
	return &wsHandler{opts: opts, now: time.Now}
}

func (h *wsHandler) Config() (core.WsConfig, error) {
	cfg := h.opts.WsConfig
	if cfg.URL == "" {
		base, err := h.wsBase()
		if err != nil {
			return core.WsConfig{}, err
		}
		cfg.URL = base
	}
	if len(h.opts.WsTopics) > 0 {
		cfg.Topics = h.opts.WsTopics
	}
	cfg.Auth = h.opts.WsAuth
	return cfg, nil
}

func (h *wsHandler) wsBase() (string, error) {
	switch h.opts.WSURL {
	case WSBytick:
		if h.opts.Testnet {
			return "", &core.MissingTestnetError{Mainnet: "wss://stream.bytick.com"}
		}
		return "wss://stream.bytick.com/v5/public/linear", nil
	default:
		if h.opts.Testnet {
			return "wss://stream-testnet.bybit.com/v5/public/linear", nil
		}
		return "wss://stream.bybit.com/v5/public/linear", nil
	}
}

// HandleAuth signs an expiring token over "GET/realtime" the way Bybit's
// private streams expect.
func (h *wsHandler) HandleAuth() ([][]byte, error) {
	h.authed.Store(false)
	if h.opts.Pubkey == "" {
		return nil, &core.AuthError{Kind: core.AuthMissingPubkey}
	}
	if !h.opts.Secret.IsSet() {
		return nil, &core.AuthError{Kind: core.AuthMissingSecret}
	}

	expires := h.now().Add(wsAuthTTL).UnixMilli()
	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte("GET/realtime" + strconv.FormatInt(expires, 10)))
	signature := hex.EncodeToString(mac.Sum(nil))

	frame, err := sonic.Marshal(map[string]any{
		"op":   "auth",
		"args": []any{h.opts.Pubkey, expires, signature},
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

// HandleSubscribe emits the subscribe frame, unless authentication is on and
// not yet acknowledged; then the frame is sent from HandleMessage when the
// auth feedback arrives.
func (h *wsHandler) HandleSubscribe(topics []string) ([][]byte, error) {
	if h.opts.WsAuth && !h.authed.Load() {
		return nil, nil
	}
	return subscribeFrames(topics)
}

func subscribeFrames(topics []string) ([][]byte, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	frame, err := sonic.Marshal(map[string]any{"op": "subscribe", "args": topics})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (h *wsHandler) HandleMessage(raw []byte) (core.Classified, error) {
	var envelope struct {
		Op      string `json:"op"`
		Success *bool  `json:"success"`
		RetMsg  string `json:"ret_msg"`

		Topic     string          `json:"topic"`
		EventType string          `json:"type"`
		Ts        int64           `json:"ts"`
		Data      json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return core.Classified{}, err
	}

	if envelope.Op != "" {
		return h.handleFeedback(envelope.Op, envelope.Success, envelope.RetMsg)
	}
	if envelope.Topic == "" {
		return core.Classified{}, fmt.Errorf("frame is neither feedback nor content: %s", core.TruncateBody(raw))
	}

	return core.Classified{Content: &core.ContentEvent{
		Topic:     envelope.Topic,
		EventType: envelope.EventType,
		Time:      time.UnixMilli(envelope.Ts),
		Data:      envelope.Data,
	}}, nil
}

func (h *wsHandler) handleFeedback(op string, success *bool, retMsg string) (core.Classified, error) {
	ok := success == nil || *success
	switch op {
	case "auth":
		if !ok {
			return core.Classified{}, &core.AuthError{Kind: core.AuthUnauthorized, Msg: retMsg}
		}
		h.authed.Store(true)
		replies, err := subscribeFrames(h.topics())
		if err != nil {
			return core.Classified{}, err
		}
		return core.Classified{Replies: replies}, nil
	case "subscribe":
		if !ok {
			if !h.opts.WsAuth && retMsg == "Request not authorized" {
				return core.Classified{}, &core.AuthError{Kind: core.AuthUnauthorized, Msg: "tried to access a private topic without authentication"}
			}
			return core.Classified{}, fmt.Errorf("subscription rejected: %s", retMsg)
		}
		return core.Classified{}, nil
	case "pong", "ping", "unsubscribe":
		return core.Classified{}, nil
	default:
		return core.Classified{}, errors.New("unrecognized feedback op " + op)
	}
}

func (h *wsHandler) topics() []string {
	if len(h.opts.WsTopics) > 0 {
		return h.opts.WsTopics
	}
	return h.opts.WsConfig.Topics
}
