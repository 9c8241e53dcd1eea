package renderer

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Delphi/internal/domain/models"
	"Delphi/internal/middleware"
	"Delphi/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func testBridge(t *testing.T) (*Bridge, string) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	loop := middleware.NewEventLoop()
	loop.Start()
	t.Cleanup(loop.Stop)

	b := NewBridge(log, loop)
	e := echo.New()
	e.GET("/renderer/ws", b.Attach)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return b, "ws" + strings.TrimPrefix(srv.URL, "http") + "/renderer/ws"
}

func waitDone(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		t.Fatalf("continuation never ran")
		return nil
	}
}

func TestDrawSucceedsWithoutPeer(t *testing.T) {
	b, _ := testBridge(t)

	done := make(chan error, 1)
	b.FullDraw(&models.Scene{Ticker: "AAPL"}, func(err error) { done <- err })
	if err := waitDone(t, done); err != nil {
		t.Fatalf("headless draw failed: %v", err)
	}
}

func TestAttachReplaysLastScene(t *testing.T) {
	b, url := testBridge(t)

	done := make(chan error, 1)
	b.FullDraw(&models.Scene{Ticker: "AAPL"}, func(err error) { done <- err })
	_ = waitDone(t, done)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var f outFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if f.Type != frameDraw || f.Scene == nil || f.Scene.Ticker != "AAPL" {
		t.Fatalf("replay frame: %+v", f)
	}
}

func TestAckCompletesContinuation(t *testing.T) {
	b, url := testBridge(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	// give the server a moment to register the peer
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	b.Patch(&models.Patch{DragMode: models.DragSelect}, func(err error) { done <- err })

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var f outFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read patch: %v", err)
	}
	if f.Type != framePatch || f.Patch == nil || f.Patch.DragMode != models.DragSelect {
		t.Fatalf("patch frame: %+v", f)
	}

	if err := conn.WriteJSON(inFrame{Type: frameAck, Seq: f.Seq}); err != nil {
		t.Fatalf("write ack: %v", err)
	}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("acked patch reported %v", err)
	}
}

func TestAckErrorPropagates(t *testing.T) {
	b, url := testBridge(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	b.FullDraw(&models.Scene{Ticker: "AAPL"}, func(err error) { done <- err })

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var f outFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read draw: %v", err)
	}
	if err := conn.WriteJSON(inFrame{Type: frameAck, Seq: f.Seq, Error: "out of memory"}); err != nil {
		t.Fatalf("write ack: %v", err)
	}

	if err := waitDone(t, done); err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("expected renderer error, got %v", err)
	}
}

func TestPeerEventsReachHandlers(t *testing.T) {
	b, url := testBridge(t)

	viewport := make(chan [2]*[2]float64, 1)
	selected := make(chan [2]int64, 1)
	b.SetHandlers(Handlers{
		OnViewport: func(x, y *[2]float64) { viewport <- [2]*[2]float64{x, y} },
		OnSelected: func(start, end int64) { selected <- [2]int64{start, end} },
	})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	xr := [2]float64{1, 2}
	if err := conn.WriteJSON(inFrame{Type: frameRelayout, XRange: &xr}); err != nil {
		t.Fatalf("write relayout: %v", err)
	}
	select {
	case v := <-viewport:
		if v[0] == nil || v[0][0] != 1 || v[0][1] != 2 || v[1] != nil {
			t.Fatalf("viewport = %v", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("relayout never dispatched")
	}

	if err := conn.WriteJSON(inFrame{Type: frameSelected, Start: 10, End: 20}); err != nil {
		t.Fatalf("write selected: %v", err)
	}
	select {
	case s := <-selected:
		if s[0] != 10 || s[1] != 20 {
			t.Fatalf("selected = %v", s)
		}
	case <-time.After(time.Second):
		t.Fatalf("selected never dispatched")
	}
}
