package transport

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/log"
)

func startEchoServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(c *ServerConn, msg []byte) { c.Send(msg) }
	}
	s := NewServer(cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func dial(t *testing.T, s *Server) *ClientConn {
	t.Helper()
	c, err := Dial(context.Background(), s.Addr().String(), 0)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestServerEcho(t *testing.T) {
	s := startEchoServer(t, ServerConfig{})
	c := dial(t, s)

	if err := c.Send([]byte("ping")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	got, err := c.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(got, []byte("ping")) {
		t.Errorf("got %q, want %q", got, "ping")
	}
}

func TestServerConnectionLifecycle(t *testing.T) {
	var mu sync.Mutex
	var connected, disconnected []string

	sink := &eventSink{}
	s := startEchoServer(t, ServerConfig{
		Logger: sink,
		OnConnect: func(c *ServerConn) {
			mu.Lock()
			connected = append(connected, c.ID())
			mu.Unlock()
		},
		OnDisconnect: func(c *ServerConn) {
			mu.Lock()
			disconnected = append(disconnected, c.ID())
			mu.Unlock()
		},
	})

	c := dial(t, s)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(connected) == 1
	})

	mu.Lock()
	id := connected[0]
	mu.Unlock()
	if _, ok := s.Conn(id); !ok {
		t.Errorf("Conn(%q) not found", id)
	}

	c.Close()
	waitFor(t, func() bool { return s.ConnectionCount() == 0 })
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(disconnected) == 1
	})
	if disconnected[0] != id {
		t.Errorf("disconnect id %q != connect id %q", disconnected[0], id)
	}

	var states []string
	for _, e := range sink.snapshot() {
		if e.StateChange != nil && e.StateChange.Entity == log.StateEntityConnection {
			states = append(states, e.StateChange.NewState)
		}
	}
	if len(states) != 2 || states[0] != "CONNECTED" || states[1] != "DISCONNECTED" {
		t.Errorf("states: got %v", states)
	}
}

func TestServerSendByID(t *testing.T) {
	ids := make(chan string, 1)
	s := startEchoServer(t, ServerConfig{
		OnConnect: func(c *ServerConn) { ids <- c.ID() },
	})
	c := dial(t, s)
	id := <-ids

	if err := s.Send(id, []byte("note")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	got, err := c.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(got) != "note" {
		t.Errorf("got %q", got)
	}

	if err := s.Send("missing", []byte("x")); err == nil {
		t.Errorf("expected error for unknown connection")
	}
}

func TestServerBroadcast(t *testing.T) {
	s := startEchoServer(t, ServerConfig{})
	a, b := dial(t, s), dial(t, s)
	waitFor(t, func() bool { return s.ConnectionCount() == 2 })

	if n := s.Broadcast([]byte("i-have")); n != 2 {
		t.Errorf("Broadcast reached %d connections, want 2", n)
	}
	for _, c := range []*ClientConn{a, b} {
		got, err := c.Receive(2 * time.Second)
		if err != nil || string(got) != "i-have" {
			t.Errorf("got %q, %v", got, err)
		}
	}
}

func TestServerStartTwice(t *testing.T) {
	s := startEchoServer(t, ServerConfig{})
	if err := s.Start(context.Background()); err != ErrServerRunning {
		t.Errorf("second Start: got %v", err)
	}
}

func TestServerStopClosesConnections(t *testing.T) {
	s := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	c := dial(t, s)
	waitFor(t, func() bool { return s.ConnectionCount() == 1 })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := c.Receive(2 * time.Second); err == nil {
		t.Errorf("expected read error after server stop")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestClientClosed(t *testing.T) {
	s := startEchoServer(t, ServerConfig{})
	c := dial(t, s)
	c.Close()
	if err := c.Send([]byte("x")); err != ErrConnectionClosed {
		t.Errorf("Send after Close: got %v", err)
	}
	if _, err := c.Receive(0); err != ErrConnectionClosed {
		t.Errorf("Receive after Close: got %v", err)
	}
}
