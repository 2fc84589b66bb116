// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package discord

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
)

// DefaultGatewayURL is the gateway endpoint with the JSON encoding.
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// closeAuthenticationFailed is sent when the token is rejected.
const closeAuthenticationFailed = 4004

// ErrAuthenticationFailed means the gateway rejected the bot token. It is not
// retried.
var ErrAuthenticationFailed = errors.New("discord gateway: authentication failed")

// errReconnect asks the run loop to open a new session.
var errReconnect = errors.New("discord gateway: reconnect requested")

// errZombie means a heartbeat went unacknowledged.
var errZombie = errors.New("discord gateway: heartbeat not acknowledged")

// Handlers receives gateway events. Nil handlers are skipped. Each event runs
// on its own goroutine.
type Handlers struct {
	Ready         func(ctx context.Context, r *Ready)
	MessageCreate func(ctx context.Context, m *Message)
	MemberAdd     func(ctx context.Context, m *Member)
	MemberUpdate  func(ctx context.Context, m *Member)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	Token   string
	URL     string
	Intents int

	HandshakeTimeout time.Duration
	ReadLimit        int64
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	StableConnection time.Duration
}

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// Gateway maintains a gateway session, reconnecting with exponential backoff.
type Gateway struct {
	cfg    GatewayConfig
	dialer *websocket.Dialer

	mu       sync.RWMutex
	handlers Handlers

	connected atomic.Bool
	inflight  conc.WaitGroup
}

// NewGateway creates a gateway client; zero config values get defaults.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.URL == "" {
		cfg.URL = DefaultGatewayURL
	}
	if cfg.Intents == 0 {
		cfg.Intents = DefaultIntents
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 4 << 20
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 32 * time.Second
	}
	if cfg.StableConnection <= 0 {
		cfg.StableConnection = time.Minute
	}

	return &Gateway{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// SetCallbacks replaces the event handlers.
func (g *Gateway) SetCallbacks(h Handlers) {
	g.mu.Lock()
	g.handlers = h
	g.mu.Unlock()
}

// IsConnected reports whether a session is currently open.
func (g *Gateway) IsConnected() bool {
	return g.connected.Load()
}

// Run keeps a session open until ctx is canceled or the token is rejected.
func (g *Gateway) Run(ctx context.Context) error {
	defer g.inflight.Wait()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.cfg.InitialBackoff
	bo.MaxInterval = g.cfg.MaxBackoff

	for {
		started := time.Now()
		err := g.session(ctx)
		g.connected.Store(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrAuthenticationFailed) {
			return err
		}

		if time.Since(started) >= g.cfg.StableConnection || errors.Is(err, errReconnect) {
			bo.Reset()
		}
		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = g.cfg.MaxBackoff
		}

		metrics.GatewayReconnects.Inc()
		logging.Warn().Err(err).Dur("backoff", sleep).Msg("Discord gateway disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// session runs one connection from dial to first error.
func (g *Gateway) session(ctx context.Context) error {
	conn, resp, err := g.dialer.DialContext(ctx, g.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(g.cfg.ReadLimit)

	first, err := readPayload(conn)
	if err != nil {
		return g.classify(fmt.Errorf("read hello: %w", err))
	}
	if first.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", first.Op)
	}
	var h hello
	if err := json.Unmarshal(first.D, &h); err != nil || h.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid hello payload: %s", first.D)
	}

	s := &gatewaySession{conn: conn}
	s.seq.Store(-1)
	s.acked.Store(true)

	if err := s.send(payload{Op: opIdentify, D: g.identify()}); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	g.connected.Store(true)
	logging.Info().Str("url", g.cfg.URL).Msg("Discord gateway connected")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- s.heartbeatLoop(connCtx, time.Duration(h.HeartbeatInterval)*time.Millisecond)
	}()
	go func() {
		defer wg.Done()
		errCh <- g.readLoop(connCtx, s)
	}()

	var firstErr error
	select {
	case <-ctx.Done():
		_ = s.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		firstErr = ctx.Err()
	case firstErr = <-errCh:
	}
	cancel()
	conn.Close()
	wg.Wait()
	return firstErr
}

func (g *Gateway) identify() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"token":   g.cfg.Token,
		"intents": g.cfg.Intents,
		"properties": map[string]string{
			"os":      runtime.GOOS,
			"browser": "elmerbot",
			"device":  "elmerbot",
		},
	})
	return data
}

func (g *Gateway) readLoop(ctx context.Context, s *gatewaySession) error {
	for {
		p, err := readPayload(s.conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return g.classify(err)
		}
		if p.S != nil {
			s.seq.Store(*p.S)
		}

		switch p.Op {
		case opDispatch:
			g.dispatch(ctx, p.T, p.D)
		case opHeartbeat:
			if err := s.heartbeat(); err != nil {
				return err
			}
		case opHeartbeatAck:
			s.acked.Store(true)
		case opReconnect:
			return errReconnect
		case opInvalidSession:
			return fmt.Errorf("invalid session: %w", errReconnect)
		}
	}
}

// classify maps a close frame to a terminal or retryable error.
func (g *Gateway) classify(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == closeAuthenticationFailed {
		return ErrAuthenticationFailed
	}
	return err
}

func (g *Gateway) dispatch(ctx context.Context, eventType string, data json.RawMessage) {
	metrics.GatewayEvents.WithLabelValues(eventType).Inc()

	g.mu.RLock()
	h := g.handlers
	g.mu.RUnlock()

	var run func(context.Context)
	switch eventType {
	case "READY":
		if h.Ready == nil {
			return
		}
		var r Ready
		if !decodeEvent(eventType, data, &r) {
			return
		}
		run = func(ctx context.Context) { h.Ready(ctx, &r) }
	case "MESSAGE_CREATE":
		if h.MessageCreate == nil {
			return
		}
		var m Message
		if !decodeEvent(eventType, data, &m) {
			return
		}
		run = func(ctx context.Context) { h.MessageCreate(ctx, &m) }
	case "GUILD_MEMBER_ADD", "GUILD_MEMBER_UPDATE":
		fn := h.MemberAdd
		if eventType == "GUILD_MEMBER_UPDATE" {
			fn = h.MemberUpdate
		}
		if fn == nil {
			return
		}
		var m Member
		if !decodeEvent(eventType, data, &m) || m.User == nil {
			return
		}
		run = func(ctx context.Context) { fn(ctx, &m) }
	default:
		return
	}

	// Handlers outlive the session that delivered them.
	handlerCtx := logging.ContextWithNewCorrelationID(context.WithoutCancel(ctx))
	g.inflight.Go(func() {
		var pc panics.Catcher
		pc.Try(func() { run(handlerCtx) })
		if r := pc.Recovered(); r != nil {
			logging.Ctx(handlerCtx).Error().Str("event", eventType).Str("panic", r.String()).Msg("Discord event handler panicked")
		}
	})
}

func readPayload(conn *websocket.Conn) (payload, error) {
	var p payload
	_, data, err := conn.ReadMessage()
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode gateway payload: %w", err)
	}
	return p, nil
}

func decodeEvent(eventType string, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		logging.Warn().Err(err).Str("event", eventType).Msg("Failed to decode Discord event")
		return false
	}
	return true
}

type gatewaySession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	seq     atomic.Int64
	acked   atomic.Bool
}

func (s *gatewaySession) send(p payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *gatewaySession) writeControl(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(messageType, data, time.Now().Add(time.Second))
}

func (s *gatewaySession) heartbeat() error {
	d := json.RawMessage("null")
	if seq := s.seq.Load(); seq >= 0 {
		d = json.RawMessage(fmt.Sprintf("%d", seq))
	}
	return s.send(payload{Op: opHeartbeat, D: d})
}

func (s *gatewaySession) heartbeatLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.acked.Swap(false) {
				return errZombie
			}
			if err := s.heartbeat(); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
		}
	}
}
