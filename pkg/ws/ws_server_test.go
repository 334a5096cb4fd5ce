package pkg_ws

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
	pkg_metrics "showcase-backend-audio_relay-go/pkg/metrics"
)

func TestServerHealthz(t *testing.T) {
	relay := newTestRelay(t, &fakeEngine{}, testConfig())

	resp, err := http.Get(relay.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	relay := newTestRelay(t, &fakeEngine{}, testConfig())
	conn := relay.dial(t)
	sendEnd(t, conn)
	readReply(t, conn)

	resp, err := http.Get(relay.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"relay_sessions_opened_total 1", "relay_utterances_total 1"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}

func TestServerAcceptsWsPath(t *testing.T) {
	relay := newTestRelay(t, &fakeEngine{}, testConfig())

	conn, _, err := websocket.DefaultDialer.Dial(strings.TrimSuffix(relay.url, "/")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial /ws: %v", err)
	}
	defer conn.Close()

	sendEnd(t, conn)
	readReply(t, conn)
}

func TestServerShutdownClosesSessions(t *testing.T) {
	engine := &fakeEngine{}
	relay := newTestRelay(t, engine, testConfig())
	conn := relay.dial(t)

	sendFrames(t, conn, []byte("pending"))
	waitFor(t, "frame", func() bool { return testutil.ToFloat64(relay.metrics.FramesReceived) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := relay.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("session still open after shutdown")
	}
	if n := testutil.ToFloat64(relay.metrics.SessionsClosed.WithLabelValues("shutdown")); n != 1 {
		t.Errorf("shutdown closes = %v, want 1", n)
	}
	if n := testutil.ToFloat64(relay.metrics.ActiveSessions); n != 0 {
		t.Errorf("active sessions = %v, want 0", n)
	}
	if calls := engine.Calls(); len(calls) != 0 {
		t.Errorf("engine called %d times during shutdown", len(calls))
	}

	// new sessions are refused
	_, resp, err := websocket.DefaultDialer.Dial(relay.url, nil)
	if err == nil {
		t.Fatal("dial succeeded after shutdown")
	}
	if resp != nil && resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestServerServe(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg := testConfig()
	cfg.Listener.MaxSessions = 2
	reg := prometheus.NewRegistry()
	srv := NewServer(cfg, &fakeEngine{}, pkg_audio.TranscribeOptions{}, pkg_metrics.NewMetrics(reg), nil, zap.NewNop())

	served := make(chan error, 1)
	go func() { served <- srv.Serve(lis) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+lis.Addr().String()+"/", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sendEnd(t, conn)
	readReply(t, conn)
	conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-served; !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve() = %v, want ErrServerClosed", err)
	}
}

func TestServerMaxSessions(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg := testConfig()
	cfg.Listener.MaxSessions = 1
	reg := prometheus.NewRegistry()
	srv := NewServer(cfg, &fakeEngine{}, pkg_audio.TranscribeOptions{}, pkg_metrics.NewMetrics(reg), nil, zap.NewNop())
	go srv.Serve(lis)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	url := "ws://" + lis.Addr().String() + "/"
	dialer := &websocket.Dialer{HandshakeTimeout: 300 * time.Millisecond}

	first, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}

	// the second connection is not accepted while the first holds the slot
	if second, _, err := dialer.Dial(url, nil); err == nil {
		second.Close()
		t.Fatal("second session accepted beyond max_sessions")
	}

	first.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	first.Close()

	var third *websocket.Conn
	waitFor(t, "free session slot", func() bool {
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			return false
		}
		third = conn
		return true
	})
	defer third.Close()

	sendEnd(t, third)
	readReply(t, third)
}
