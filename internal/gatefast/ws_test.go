package gatefast

import (
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestPingLoopExitsWhenConnSuperseded(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0, time.Millisecond)
	ws.pingInterval = time.Millisecond

	// A loop bound to a connection that is no longer current must return on
	// its next tick rather than keep ticking forever.
	stale := new(websocket.Conn)
	ws.wg.Add(1)
	go ws.pingLoop(stale)

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ping loop kept running for a superseded connection")
	}
}

func TestListenExitsWhenConnSuperseded(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0, time.Millisecond)

	stale := new(websocket.Conn)
	ws.wg.Add(1)
	go ws.listen(stale)

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listen loop kept running for a superseded connection")
	}
}
