// SPDX-License-Identifier: MIT
package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTest(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(wst.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 5s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	t.Cleanup(func() { wst.Close() })

	first := dialTest(t, wst)
	second := dialTest(t, wst)
	waitFor(t, func() bool { return wst.ClientCount() == 2 })

	bars := []float64{0, 0.25, 1}
	if err := wst.Send(bars); err != nil {
		t.Fatalf("Send: %v", err)
	}
	bars[0] = 99 // the queued frame is a copy

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("client %d ReadJSON: %v", i, err)
		}
		if msg.Event != EventAudioData || msg.Sequence != 1 {
			t.Errorf("client %d got event %q seq %d", i, msg.Event, msg.Sequence)
		}
		if len(msg.Bars) != 3 || msg.Bars[0] != 0 || msg.Bars[2] != 1 {
			t.Errorf("client %d got bars %v", i, msg.Bars)
		}
	}
}

func TestWebSocketSequenceOrder(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	t.Cleanup(func() { wst.Close() })

	conn := dialTest(t, wst)
	waitFor(t, func() bool { return wst.ClientCount() == 1 })

	for i := range 10 {
		if err := wst.Send([]float64{float64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := range 10 {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON %d: %v", i, err)
		}
		if msg.Sequence != uint64(i+1) || msg.Bars[0] != float64(i) {
			t.Fatalf("message %d = seq %d bars %v", i, msg.Sequence, msg.Bars)
		}
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	t.Cleanup(func() { wst.Close() })

	conn := dialTest(t, wst)
	waitFor(t, func() bool { return wst.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return wst.ClientCount() == 0 })
}

func TestWebSocketDropsWhenQueueFull(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	// Stop the broadcast loop so nothing drains the queue.
	close(wst.done)
	wst.wg.Wait()

	wst.done = make(chan struct{})
	for range broadcastQueueSize + 5 {
		if err := wst.Send([]float64{1}); err != nil {
			t.Fatal(err)
		}
	}
	if got := wst.Dropped(); got != 5 {
		t.Errorf("Dropped() = %d, want 5", got)
	}
}

func TestWebSocketStartAndClose(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	if err := wst.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if strings.HasSuffix(wst.Addr(), ":0") {
		t.Errorf("Addr() = %s, want bound port", wst.Addr())
	}

	url := "ws://" + wst.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return wst.ClientCount() == 1 })

	if err := wst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := wst.Send([]float64{1}); err == nil {
		t.Error("Send after Close should fail")
	}
	if wst.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", wst.ClientCount())
	}
}

func TestWebSocketStartBadAddress(t *testing.T) {
	wst := NewWebSocketTransport("256.0.0.1:bad")
	t.Cleanup(func() { wst.Close() })
	if err := wst.Start(); err == nil {
		t.Error("expected listen error")
	}
}
