package zrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	idleWait   = 60 * time.Second
	pongWait   = 10 * time.Second
	maxMsgSize = 1 << 12

	minReconnect = 5 * time.Second
	maxReconnect = 60 * time.Second
)

// Listener follows the hub's push channel at /zrap/ws and forwards decoded events to a sink.
// It reconnects until its context is cancelled.
type Listener struct {
	host   string
	wsURL  string
	sink   ports.HubEventSink
	dialer *websocket.Dialer
	logger zerolog.Logger
	now    func() time.Time

	// reconnect bounds, overridable in tests
	minWait time.Duration
	maxWait time.Duration
	idle    time.Duration
}

func NewListener(host string, sink ports.HubEventSink, logger zerolog.Logger) *Listener {
	return &Listener{
		host:    host,
		wsURL:   WebsocketURL(host),
		sink:    sink,
		dialer:  websocket.DefaultDialer,
		logger:  logger.With().Str("component", "zrap-ws").Str("hub", host).Logger(),
		now:     time.Now,
		minWait: minReconnect,
		maxWait: maxReconnect,
		idle:    idleWait,
	}
}

// WebsocketURL maps a hub host (or http base URL) onto its ws://host/zrap/ws endpoint.
func WebsocketURL(host string) string {
	u, err := url.Parse(BaseURL(host))
	if err != nil {
		return "ws://" + host + "/zrap/ws"
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/zrap/ws"
	return u.String()
}

func (l *Listener) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.minWait
	b.MaxInterval = l.maxWait
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run blocks until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	b := l.newBackOff()
	for {
		connected, err := l.session(ctx)
		if ctx.Err() != nil {
			l.logger.Info().Msg("Listener stopped")
			return
		}
		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		l.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Websocket disconnected")

		select {
		case <-ctx.Done():
			l.logger.Info().Msg("Listener stopped")
			return
		case <-time.After(wait):
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (l *Listener) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := l.dialer.DialContext(ctx, l.wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", l.wsURL, err)
	}
	defer conn.Close()
	l.logger.Info().Str("url", l.wsURL).Msg("Websocket connected")

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(l.idle + pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(l.idle + pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go l.keepAlive(ctx, conn, done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(l.idle + pongWait))

		event, ok := DecodeEvent(l.host, msg, l.now())
		if !ok {
			l.logger.Debug().Str("raw", string(msg)).Msg("Ignoring unknown message")
			continue
		}
		l.sink.OnHubEvent(ctx, event)
	}
}

// keepAlive pings after every idle period and closes the connection when ctx ends, which
// unblocks the reader.
func (l *Listener) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ping := time.NewTicker(l.idle)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = conn.Close()
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				l.logger.Debug().Err(err).Msg("Ping failed")
				_ = conn.Close()
				return
			}
		}
	}
}

type wsMessage struct {
	EID1 *struct {
		Ch  int             `json:"ch"`
		Val json.RawMessage `json:"val"`
	} `json:"eid1"`
	EID2 *struct {
		BTA string `json:"bta"`
	} `json:"eid2"`
}

// DecodeEvent turns one websocket frame into a HubEvent. Frames that are not JSON or carry
// neither eid1 nor eid2 are reported as not ok.
func DecodeEvent(host string, raw []byte, at time.Time) (model.HubEvent, bool) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return model.HubEvent{}, false
	}
	event := model.HubEvent{Host: host, At: at, Pressed: -1, RawEvent: string(raw)}

	switch {
	case msg.EID1 != nil:
		event.Type = model.HubEventValueUpdate
		event.Channel = msg.EID1.Ch
		event.Value = rawValue(msg.EID1.Val)
	case msg.EID2 != nil:
		event.Type = model.HubEventButton
		event.Buttons = strings.Split(msg.EID2.BTA, ".")
		for i, b := range event.Buttons {
			if b == "P" {
				event.Pressed = i
				break
			}
		}
	default:
		return model.HubEvent{}, false
	}
	return event, true
}

func rawValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}
