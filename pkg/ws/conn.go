// Package ws manages a single logical WebSocket subscription over any number
// of physical connections: it dials, authenticates, subscribes, detects dead
// or stale sockets, and reconnects with an overlap window during which
// replayed messages are deduplicated.
package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"tradewire/pkg/core"
)

// ErrClosed is returned by Next after Close has been called.
var ErrClosed = errors.New("connection manager closed")

const eventBuffer = 64

type feedKind int

const (
	kindMessage feedKind = iota
	kindClosed
	kindError
)

type feedMsg struct {
	id   bool
	kind feedKind
	data []byte
	err  error
	src  *gws.Conn
}

// Conn is a managed WebSocket connection. It is created idle; the first Next
// call dials. All physical sockets funnel into one feed loop, so content
// events are delivered in server order within a connection generation.
type Conn struct {
	handler core.WsHandler
	cfg     core.WsConfig
	logger  zerolog.Logger

	inbound     chan feedMsg
	events      chan core.ContentEvent
	reconnectCh chan struct{}
	closeCh     chan struct{}

	reconnecting atomic.Bool
	currentID    atomic.Bool
	st           state

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once

	sinkMu sync.Mutex
	sink   *gws.Conn
}

// New builds a connection manager around the handler. The handler's Config is
// read and validated here; dialing waits until the first Next call.
func New(handler core.WsHandler) (*Conn, error) {
	cfg, err := handler.Config()
	if err != nil {
		return nil, core.NewWsError("url", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, core.NewWsError("url", err)
	}
	return &Conn{
		handler:     handler,
		cfg:         cfg,
		logger:      zerolog.Nop(),
		inbound:     make(chan feedMsg, eventBuffer),
		events:      make(chan core.ContentEvent, eventBuffer),
		reconnectCh: make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
	}, nil
}

// SetLogger installs a logger for connection lifecycle events.
func (c *Conn) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// State returns the connection lifecycle state.
func (c *Conn) State() ConnState {
	return c.st.Load()
}

// Next blocks until the next content event arrives, the context is done, or
// the manager is closed. The first call dials the initial connection.
func (c *Conn) Next(ctx context.Context) (core.ContentEvent, error) {
	c.startOnce.Do(func() { c.startErr = c.start() })
	if c.startErr != nil {
		return core.ContentEvent{}, c.startErr
	}

	select {
	case ev := <-c.events:
		return ev, nil
	case <-ctx.Done():
		return core.ContentEvent{}, core.NewWsError("transport", ctx.Err())
	case <-c.closeCh:
		return core.ContentEvent{}, core.NewWsError("closed", ErrClosed)
	}
}

// RequestReconnect asks the manager to replace the current socket. It reports
// whether the request was accepted; a reconnection already in progress
// absorbs the request.
func (c *Conn) RequestReconnect() bool {
	if c.reconnecting.Load() {
		return false
	}
	select {
	case c.reconnectCh <- struct{}{}:
	default:
	}
	return true
}

// Close tears the connection down for good. Subsequent Next calls fail with
// ErrClosed.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.st.Store(StateClosed)
		close(c.closeCh)
		c.sinkMu.Lock()
		if c.sink != nil {
			_ = c.sink.NetConn().Close()
		}
		c.sinkMu.Unlock()
	})
	return nil
}

func (c *Conn) start() error {
	socket, err := c.dial(false)
	if err != nil {
		c.st.Store(StateDisconnected)
		return err
	}
	c.sinkMu.Lock()
	c.sink = socket
	c.sinkMu.Unlock()
	c.currentID.Store(false)
	c.st.Store(StateSubscribed)

	go c.feed()
	go c.reconnectLoop()
	return nil
}

// dial opens one physical connection tagged with id: connect, authenticate
// if configured, subscribe the topic set. It drives the lifecycle states so
// reconnects pass through the same progression as the first connection.
func (c *Conn) dial(id bool) (*gws.Conn, error) {
	c.st.Store(StateConnecting)
	socket, _, err := gws.NewClient(&socketEvents{c: c, id: id}, &gws.ClientOption{
		Addr: c.cfg.URL,
	})
	if err != nil {
		return nil, core.NewWsError("transport", err)
	}
	go socket.ReadLoop()

	if c.cfg.Auth {
		c.st.Store(StateAuthenticating)
		frames, err := c.handler.HandleAuth()
		if err != nil {
			_ = socket.NetConn().Close()
			return nil, core.NewWsError("auth", err)
		}
		for _, f := range frames {
			if err := socket.WriteMessage(gws.OpcodeText, f); err != nil {
				_ = socket.NetConn().Close()
				return nil, core.NewWsError("auth", err)
			}
		}
	}

	frames, err := c.handler.HandleSubscribe(c.cfg.Topics)
	if err != nil {
		_ = socket.NetConn().Close()
		return nil, core.NewWsError("subscribe", err)
	}
	for _, f := range frames {
		if err := socket.WriteMessage(gws.OpcodeText, f); err != nil {
			_ = socket.NetConn().Close()
			return nil, core.NewWsError("subscribe", err)
		}
	}

	c.logger.Debug().Str("url", c.cfg.URL).Bool("id", id).Msg("websocket connected")
	return socket, nil
}

// feed is the single consumer of all inbound traffic. It applies handover
// dedup, lets the handler classify each frame, writes protocol replies back
// to the socket the frame arrived on, and delivers content events in arrival
// order.
func (c *Conn) feed() {
	d := newDedup()

	var idle *time.Timer
	var idleC <-chan time.Time
	if c.cfg.MessageTimeout > 0 {
		idle = time.NewTimer(c.cfg.MessageTimeout)
		defer idle.Stop()
		idleC = idle.C
	}

	for {
		select {
		case <-c.closeCh:
			return

		case <-idleC:
			if c.RequestReconnect() {
				c.logger.Info().Dur("timeout", c.cfg.MessageTimeout).Msg("no messages received, reconnecting")
			}
			idle.Reset(c.cfg.MessageTimeout)

		case m := <-c.inbound:
			if idle != nil {
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(c.cfg.MessageTimeout)
			}

			switch m.kind {
			case kindClosed:
				if m.id != c.currentID.Load() {
					continue // old generation, already replaced
				}
				if c.RequestReconnect() {
					c.logger.Info().Msg("websocket closed by server, reconnecting")
				}

			case kindError:
				c.logger.Error().Err(m.err).Msg("websocket receive error")
				c.RequestReconnect()

			case kindMessage:
				if c.reconnecting.Load() {
					sign := -1
					if m.id {
						sign = 1
					}
					if !d.admit(string(m.data), sign) {
						c.logger.Debug().Msg("skipping duplicate message")
						continue
					}
				} else {
					d.clear()
				}
				c.handleFrame(m.src, m.data)
			}
		}
	}
}

func (c *Conn) handleFrame(src *gws.Conn, data []byte) {
	classified, err := c.handler.HandleMessage(data)
	if err != nil {
		c.logger.Debug().Err(err).Str("frame", core.TruncateBody(data)).Msg("unparseable websocket frame")
		return
	}
	// Replies answer the socket that produced the frame. During a handover the
	// replacement may provoke replies before it becomes the sink; sending them
	// to the sink would hand them to the wrong (possibly dying) socket.
	for _, reply := range classified.Replies {
		c.write(src, reply)
	}
	if classified.Content == nil {
		return
	}
	select {
	case c.events <- *classified.Content:
	case <-c.closeCh:
	}
}

func (c *Conn) write(socket *gws.Conn, frame []byte) {
	if socket == nil {
		return
	}
	if err := socket.WriteMessage(gws.OpcodeText, frame); err != nil {
		c.logger.Error().Err(err).Msg("failed to write websocket frame")
	}
}

// reconnectLoop replaces the live socket whenever asked, a refresh interval
// elapses, or the feed detects trouble. Dial attempts are spaced by the
// connect cooldown; the old socket stays open for the overlap window so the
// dedup map can cancel replayed messages.
func (c *Conn) reconnectLoop() {
	var lastAttempt time.Time

	for {
		var refreshC <-chan time.Time
		var refresh *time.Timer
		if c.cfg.RefreshAfter > 0 {
			refresh = time.NewTimer(c.cfg.RefreshAfter)
			refreshC = refresh.C
		}

		select {
		case <-c.closeCh:
			if refresh != nil {
				refresh.Stop()
			}
			return
		case <-c.reconnectCh:
		case <-refreshC:
			c.logger.Debug().Dur("after", c.cfg.RefreshAfter).Msg("refreshing websocket connection")
		}
		if refresh != nil {
			refresh.Stop()
		}

		if wait := c.cfg.ConnectCooldown - time.Since(lastAttempt); wait > 0 {
			if !c.pause(wait) {
				return
			}
		}
		lastAttempt = time.Now()

		c.reconnecting.Store(true)
		c.st.Store(StateReconnecting)
		// Absorb requests that queued up while we were waiting.
		select {
		case <-c.reconnectCh:
		default:
		}

		if !c.pause(c.cfg.ReconnectionWait) {
			return
		}

		newID := !c.currentID.Load()
		socket, err := c.dial(newID)
		if err != nil {
			c.st.Store(StateReconnecting)
			c.logger.Error().Err(err).Msg("reconnect failed, trying again")
			select {
			case c.reconnectCh <- struct{}{}:
			default:
			}
		} else {
			c.sinkMu.Lock()
			old := c.sink
			c.sink = socket
			c.sinkMu.Unlock()
			c.currentID.Store(newID)
			c.st.Store(StateSubscribed)

			if !c.pause(c.cfg.ReconnectionWait) {
				return
			}
			if old != nil {
				_ = old.NetConn().Close()
			}
			c.logger.Info().Str("url", c.cfg.URL).Msg("websocket reconnected")
		}

		if !c.pause(c.cfg.ReconnectionWait) {
			return
		}
		c.reconnecting.Store(false)
	}
}

// pause sleeps unless the manager is closed first.
func (c *Conn) pause(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.closeCh:
		return false
	case <-t.C:
		return true
	}
}

// socketEvents adapts one physical gws connection into the manager's feed.
type socketEvents struct {
	c  *Conn
	id bool
}

func (h *socketEvents) OnOpen(socket *gws.Conn) {}

func (h *socketEvents) OnClose(socket *gws.Conn, err error) {
	h.deliver(feedMsg{id: h.id, kind: kindClosed, err: err})
}

func (h *socketEvents) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *socketEvents) OnPong(socket *gws.Conn, payload []byte) {}

func (h *socketEvents) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	data := append([]byte(nil), message.Bytes()...)
	h.deliver(feedMsg{id: h.id, kind: kindMessage, data: data, src: socket})
}

func (h *socketEvents) deliver(m feedMsg) {
	select {
	case h.c.inbound <- m:
	case <-h.c.closeCh:
	}
}
