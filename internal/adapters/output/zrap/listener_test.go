package zrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"zeptrion-bridge/internal/domain/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("value update", func(t *testing.T) {
		e, ok := DecodeEvent("zapp-1", []byte(`{"eid1":{"ch":3,"val":100}}`), at)
		require.True(t, ok)
		assert.Equal(t, model.HubEventValueUpdate, e.Type)
		assert.Equal(t, 3, e.Channel)
		assert.Equal(t, "100", e.Value)
		assert.Equal(t, "zapp-1", e.Host)
		assert.Equal(t, at, e.At)
	})

	t.Run("string value", func(t *testing.T) {
		e, ok := DecodeEvent("zapp-1", []byte(`{"eid1":{"ch":1,"val":"-1"}}`), at)
		require.True(t, ok)
		assert.Equal(t, "-1", e.Value)
	})

	t.Run("button pressed", func(t *testing.T) {
		e, ok := DecodeEvent("zapp-1", []byte(`{"eid2":{"bta":"R.P.R.R"}}`), at)
		require.True(t, ok)
		assert.Equal(t, model.HubEventButton, e.Type)
		assert.Equal(t, []string{"R", "P", "R", "R"}, e.Buttons)
		assert.Equal(t, 1, e.Pressed)
	})

	t.Run("button released", func(t *testing.T) {
		e, ok := DecodeEvent("zapp-1", []byte(`{"eid2":{"bta":"R.R"}}`), at)
		require.True(t, ok)
		assert.Equal(t, -1, e.Pressed)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok := DecodeEvent("zapp-1", []byte(`{"eid9":{}}`), at)
		assert.False(t, ok)
		_, ok = DecodeEvent("zapp-1", []byte(`garbage`), at)
		assert.False(t, ok)
	})
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.HubEvent
	got    chan struct{}
}

func (r *recordingSink) OnHubEvent(ctx context.Context, event model.HubEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func TestListener_ForwardsAndReconnects(t *testing.T) {
	var upgrader websocket.Upgrader
	var mu sync.Mutex
	connections := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zrap/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		if n == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"eid1":{"ch":3,"val":100}}`))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"eid2":{"bta":"P.R"}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	sink := &recordingSink{got: make(chan struct{}, 4)}
	l := NewListener(srv.URL, sink, zerolog.Nop())
	l.minWait = 10 * time.Millisecond
	l.maxWait = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-sink.got:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 2)
	assert.Equal(t, model.HubEventValueUpdate, sink.events[0].Type)
	assert.Equal(t, model.HubEventButton, sink.events[1].Type)
	assert.Equal(t, 0, sink.events[1].Pressed)
}

func TestListener_BackOff(t *testing.T) {
	l := NewListener("zapp-1", nil, zerolog.Nop())
	b := l.newBackOff()
	var waits []time.Duration
	for i := 0; i < 6; i++ {
		waits = append(waits, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second,
	}, waits)
}
