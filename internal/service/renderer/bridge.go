package renderer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"Delphi/internal/domain/models"
	"Delphi/internal/middleware"
	"Delphi/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Frame types on the renderer socket.
const (
	frameDraw      = "draw"
	framePatch     = "patch"
	frameAck       = "ack"
	frameRelayout  = "relayout"
	frameSelecting = "selecting"
	frameSelected  = "selected"
)

// ackTimeout bounds how long a draw or patch may stay unacknowledged before
// its continuation fails. Without it a dead peer would pin the render token.
const ackTimeout = 5 * time.Second

var errNoAck = errors.New("renderer did not acknowledge in time")

// outFrame is one command to the peer.
type outFrame struct {
	Type  string        `json:"type"`
	Seq   uint64        `json:"seq"`
	Scene *models.Scene `json:"scene,omitempty"`
	Patch *models.Patch `json:"patch,omitempty"`
}

// inFrame is one message from the peer.
type inFrame struct {
	Type   string      `json:"type"`
	Seq    uint64      `json:"seq,omitempty"`
	Error  string      `json:"error,omitempty"`
	XRange *[2]float64 `json:"xrange,omitempty"`
	YRange *[2]float64 `json:"yrange,omitempty"`
	Start  int64       `json:"start,omitempty"`
	End    int64       `json:"end,omitempty"`
}

// Handlers are the orchestrator entry points for peer-originated events.
type Handlers struct {
	OnViewport  func(x, y *[2]float64)
	OnSelecting func(start, end int64)
	OnSelected  func(start, end int64)
}

// Bridge implements the renderer as a WebSocket peer. At most one peer is
// attached; draws and patches go out as sequenced frames that the peer acks.
// With no peer attached, operations succeed trivially and the last scene is
// replayed on the next attach.
type Bridge struct {
	log      *logger.Logger
	loop     *middleware.EventLoop
	handlers Handlers
	upgrader websocket.Upgrader

	mu        sync.Mutex
	conn      *websocket.Conn
	seq       uint64
	pending   map[uint64]*pendingOp
	lastScene *models.Scene
}

type pendingOp struct {
	done  func(error)
	timer *time.Timer
}

func NewBridge(log *logger.Logger, loop *middleware.EventLoop) *Bridge {
	return &Bridge{
		log:  log,
		loop: loop,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pending: make(map[uint64]*pendingOp),
	}
}

// SetHandlers wires peer events to the orchestrator. Called once at startup
// before any peer can attach.
func (b *Bridge) SetHandlers(h Handlers) {
	b.handlers = h
}

// FullDraw sends the complete scene. The continuation runs exactly once on
// the event loop: on ack, on write failure, on timeout, or immediately when
// no peer is attached.
func (b *Bridge) FullDraw(scene *models.Scene, done func(error)) {
	b.mu.Lock()
	b.lastScene = scene
	b.send(outFrame{Type: frameDraw, Scene: scene}, done)
	b.mu.Unlock()
}

// Patch sends a decoration/layout update.
func (b *Bridge) Patch(patch *models.Patch, done func(error)) {
	b.mu.Lock()
	b.send(outFrame{Type: framePatch, Patch: patch}, done)
	b.mu.Unlock()
}

// send writes one frame and registers its continuation. Caller holds b.mu.
func (b *Bridge) send(f outFrame, done func(error)) {
	if b.conn == nil {
		b.complete(done, nil)
		return
	}

	b.seq++
	f.Seq = b.seq
	if err := b.conn.WriteJSON(f); err != nil {
		b.complete(done, fmt.Errorf("renderer write: %w", err))
		return
	}

	if done == nil {
		return // replay frames carry no continuation
	}
	seq := f.Seq
	op := &pendingOp{done: done}
	op.timer = time.AfterFunc(ackTimeout, func() { b.expire(seq) })
	b.pending[seq] = op
}

// complete posts the continuation onto the event loop.
func (b *Bridge) complete(done func(error), err error) {
	if done == nil {
		return
	}
	if !b.loop.Post(func() { done(err) }) {
		// Loop saturated or stopped; run inline rather than losing the
		// token release.
		done(err)
	}
}

func (b *Bridge) expire(seq uint64) {
	b.mu.Lock()
	op, ok := b.pending[seq]
	if ok {
		delete(b.pending, seq)
	}
	b.mu.Unlock()
	if ok {
		b.complete(op.done, errNoAck)
	}
}

// failAll completes every pending operation with err. Caller holds b.mu.
func (b *Bridge) failAll(err error) {
	for seq, op := range b.pending {
		op.timer.Stop()
		delete(b.pending, seq)
		b.complete(op.done, err)
	}
}

// Attach upgrades the request to the renderer peer socket. A new peer
// replaces any existing one and receives the last scene immediately.
func (b *Bridge) Attach(c echo.Context) error {
	conn, err := b.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("renderer upgrade: %w", err)
	}

	b.mu.Lock()
	if b.conn != nil {
		_ = b.conn.Close()
		b.failAll(errors.New("renderer replaced"))
	}
	b.conn = conn
	if b.lastScene != nil {
		b.send(outFrame{Type: frameDraw, Scene: b.lastScene}, nil)
	}
	b.mu.Unlock()

	b.log.Info("renderer attached", logger.String("remote", conn.RemoteAddr().String()))
	go b.readLoop(conn)
	return nil
}

// readLoop drains peer frames until the socket dies.
func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
			b.failAll(errors.New("renderer detached"))
		}
		b.mu.Unlock()
		_ = conn.Close()
		b.log.Info("renderer detached")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f inFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			b.log.Warn("malformed renderer frame", logger.Error(err))
			continue
		}
		b.handleFrame(f)
	}
}

func (b *Bridge) handleFrame(f inFrame) {
	switch f.Type {
	case frameAck:
		b.mu.Lock()
		op, ok := b.pending[f.Seq]
		if ok {
			op.timer.Stop()
			delete(b.pending, f.Seq)
		}
		b.mu.Unlock()
		if !ok {
			return // late ack after timeout
		}
		var err error
		if f.Error != "" {
			err = fmt.Errorf("renderer: %s", f.Error)
		}
		b.complete(op.done, err)

	case frameRelayout:
		if b.handlers.OnViewport != nil {
			b.handlers.OnViewport(f.XRange, f.YRange)
		}

	case frameSelecting:
		if b.handlers.OnSelecting != nil {
			b.handlers.OnSelecting(f.Start, f.End)
		}

	case frameSelected:
		if b.handlers.OnSelected != nil {
			b.handlers.OnSelected(f.Start, f.End)
		}

	default:
		b.log.Debug("unhandled renderer frame", logger.String("type", f.Type))
	}
}
