package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func frame(event, token string) Frame {
	return Frame{Event: event, Token: token, Payload: []byte(fmt.Sprintf(`{"event":%q,"token":%q}`, event, token))}
}

func drain(s *Subscriber) []string {
	var out []string
	for {
		select {
		case p, ok := <-s.Queue():
			if !ok {
				return out
			}
			out = append(out, string(p))
		default:
			return out
		}
	}
}

// ---------------------------------------------------------------------------
// Filter
// ---------------------------------------------------------------------------

func TestFilter_Match(t *testing.T) {
	rug := frame("RugAttempt", "0xABC")
	front := frame("FrontRunSuccess", "0xABC")
	other := frame("RugAttempt", "0xDEF")

	assert.True(t, Filter{}.Match(rug), "empty filter matches everything")

	byEvent := Filter{Events: []string{"rugattempt"}}
	assert.True(t, byEvent.Match(rug))
	assert.False(t, byEvent.Match(front))

	byToken := Filter{Tokens: []string{"0xabc"}}
	assert.True(t, byToken.Match(rug))
	assert.True(t, byToken.Match(front))
	assert.False(t, byToken.Match(other))
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry_RegisterUnregister(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry(10)
	s := NewSubscriber("sub_1", 4)

	require.NoError(t, r.Register(s))
	assert.ErrorIs(t, r.Register(s), ErrDuplicateSubscriber)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Unregister("sub_1"))
	assert.False(t, r.Unregister("sub_1"), "second unregister is a no-op")
	assert.Equal(t, 0, r.Len())
	assert.False(t, s.Open())

	_, ok := <-s.Queue()
	assert.False(t, ok, "queue is closed on unregister")
}

func TestRegistry_Limit(t *testing.T) {
	r := NewRegistry(2)
	require.NoError(t, r.Register(NewSubscriber("a", 1)))
	require.NoError(t, r.Register(NewSubscriber("b", 1)))
	assert.ErrorIs(t, r.Register(NewSubscriber("c", 1)), ErrTooManySubscribers)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Connected)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, 2, stats.Peak)
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry(0)
	a, b := NewSubscriber("a", 1), NewSubscriber("b", 1)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	assert.Equal(t, 2, r.CloseAll())
	assert.Equal(t, 0, r.Len())
	assert.False(t, a.Open())
	assert.False(t, b.Open())

	late := NewSubscriber("late", 1)
	assert.ErrorIs(t, r.Register(late), ErrRegistryClosed)
	assert.Equal(t, 0, r.Len())
}

// ---------------------------------------------------------------------------
// Broadcaster
// ---------------------------------------------------------------------------

func TestBroadcast_OrderPerSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry(0)
	b := NewBroadcaster(r, slog.Default())
	subs := []*Subscriber{NewSubscriber("a", 8), NewSubscriber("b", 8), NewSubscriber("c", 8)}
	for _, s := range subs {
		require.NoError(t, r.Register(s))
	}

	d := b.Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))
	assert.Equal(t, Delivery{Subscribers: 3, Frames: 6}, d)

	for _, s := range subs {
		got := drain(s)
		require.Len(t, got, 2)
		assert.Contains(t, got[0], "RugAttempt")
		assert.Contains(t, got[1], "FrontRunSuccess")
	}
}

func TestBroadcast_ZeroSubscribers(t *testing.T) {
	b := NewBroadcaster(NewRegistry(0), nil)
	d := b.Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))
	assert.Equal(t, Delivery{}, d)
}

func TestBroadcast_SkipsClosedSubscriber(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(r, nil)
	s := NewSubscriber("a", 8)
	require.NoError(t, r.Register(s))

	// Closed between snapshot and delivery: simulate with a direct close.
	s.close()

	d := b.Broadcast(frame("RugAttempt", "0xABC"))
	assert.Equal(t, 1, d.Skipped)
	assert.Equal(t, 0, d.Frames)
}

func TestBroadcast_DisconnectedBeforeTriggerGetsNothing(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(r, nil)
	s := NewSubscriber("gone", 8)
	require.NoError(t, r.Register(s))
	r.Unregister("gone")

	d := b.Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))
	assert.Equal(t, Delivery{}, d)
	assert.Empty(t, drain(s))
}

func TestBroadcast_FullQueueDropsSubscriber(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(r, nil)
	slow := NewSubscriber("slow", 1)
	fast := NewSubscriber("fast", 8)
	require.NoError(t, r.Register(slow))
	require.NoError(t, r.Register(fast))

	d := b.Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))
	assert.Equal(t, 1, d.Dropped)
	assert.Equal(t, 1, d.Subscribers)
	assert.Equal(t, 1, r.Len())
	assert.False(t, slow.Open())
	assert.Empty(t, drain(slow), "nothing partial is queued on a dropped subscriber")
	assert.Len(t, drain(fast), 2)
}

func TestBroadcast_RespectsFilter(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(r, nil)
	s := NewSubscriber("a", 8)
	s.SetFilter(Filter{Tokens: []string{"0xDEF"}})
	require.NoError(t, r.Register(s))

	b.Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))
	assert.Empty(t, drain(s))

	b.Broadcast(frame("RugAttempt", "0xDEF"), frame("FrontRunSuccess", "0xDEF"))
	assert.Len(t, drain(s), 2)
}

func TestBroadcast_ConcurrentWithChurn(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry(0)
	b := NewBroadcaster(r, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("s-%d-%d", i, j)
				_ = r.Register(NewSubscriber(id, 4))
				r.Unregister(id)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}

// ---------------------------------------------------------------------------
// Hub
// ---------------------------------------------------------------------------

func startHub(t *testing.T, cfg HubConfig) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(cfg, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_DeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub, srv, cancel := startHub(t, HubConfig{})
	defer srv.Close()
	defer cancel()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcaster().Broadcast(frame("RugAttempt", "0xABC"), frame("FrontRunSuccess", "0xABC"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(first), "RugAttempt")
	assert.Contains(t, string(second), "FrontRunSuccess")

	assert.Equal(t, int64(2), hub.Stats().TotalFrames)
}

func TestHub_FilterMessage(t *testing.T) {
	hub, srv, cancel := startHub(t, HubConfig{})
	defer srv.Close()
	defer cancel()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"tokens":["0xDEF"]}`)))
	require.Eventually(t, func() bool {
		subs := hub.Registry().Snapshot()
		return len(subs) == 1 && len(subs[0].Filter().Tokens) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcaster().Broadcast(frame("RugAttempt", "0xABC"))
	hub.Broadcaster().Broadcast(frame("RugAttempt", "0xDEF"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "0xDEF")
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, srv, cancel := startHub(t, HubConfig{})
	defer srv.Close()
	defer cancel()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 0 }, time.Second, 10*time.Millisecond)

	// Broadcasting to nobody is fine.
	d := hub.Broadcaster().Broadcast(frame("RugAttempt", "0xABC"))
	assert.Equal(t, 0, d.Subscribers)
}

func TestHub_RejectsOverLimit(t *testing.T) {
	hub, srv, cancel := startHub(t, HubConfig{MaxSubscribers: 1})
	defer srv.Close()
	defer cancel()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestHub_ShutdownClosesSubscribers(t *testing.T) {
	hub, srv, cancel := startHub(t, HubConfig{})
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived), "got %v", err)
	assert.Equal(t, 0, hub.Registry().Len())
}

func TestHub_RejectsForeignBrowserOrigin(t *testing.T) {
	hub, srv, cancel := startHub(t, HubConfig{AllowedOrigins: []string{"https://app.example"}})
	defer srv.Close()
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Registry().Len())

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://app.example"}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_RefusesUpgradesAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub, srv, cancel := startHub(t, HubConfig{})
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	require.Eventually(t, func() bool {
		c, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			c.Close()
			return false
		}
		return resp != nil && resp.StatusCode == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, hub.Registry().Len())
	assert.ErrorIs(t, hub.Registry().Register(NewSubscriber("late", 1)), ErrRegistryClosed)
}
