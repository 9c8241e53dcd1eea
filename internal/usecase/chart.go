package usecase

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"Delphi/internal/domain/models"
	"Delphi/internal/domain/repository"
	"Delphi/internal/middleware"
	"Delphi/pkg/cache"
	"Delphi/pkg/config"
	"Delphi/pkg/logger"
)

// Render operation kinds for metrics.
const (
	renderKindDraw  = "draw"
	renderKindPatch = "patch"
)

var (
	// ErrNotLoaded means the operation needs data on screen first.
	ErrNotLoaded = errors.New("no chart data loaded")
	// ErrBusy means the event loop could not accept the request.
	ErrBusy = errors.New("event loop saturated")
	// ErrUnknownToggle reports a toggle name outside the known set.
	ErrUnknownToggle = errors.New("unknown toggle")
)

// Chart owns all chart state and orchestrates the flow from channel events
// to renderer operations. Every field below the constructor-set dependencies
// is confined to the event loop; external callers go through run, which
// executes on the loop and blocks until done.
type Chart struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  repository.Metrics
	renderer repository.Renderer
	loop     *middleware.EventLoop
	store    repository.SettingsStore
	cache    cache.Service

	data  repository.ChannelStream
	train repository.ChannelStream
	misc  repository.ChannelStream

	norm *Normalizer

	ticker     string
	candles    []models.Candle
	tickerInfo map[string]models.TickerInfo
	view       *models.ViewState
	settings   *models.AppSettings
	chain      models.TradeChain
	gainers    *models.MiscUpdate

	sel           selection
	progress      float64
	totalPatterns int

	cancelDataTimeout func()
	pendingUnique     []chan *models.UniqueTickersList

	// renderEngaged is the single-flight token guarding the renderer. It is
	// acquired with a compare-and-swap before any draw or patch is issued
	// and released exactly once in the completion continuation.
	renderEngaged atomic.Bool
}

// NewChart loads persisted settings and builds the orchestrator. The event
// loop is not started here; Run does that.
func NewChart(
	cfg *config.Config,
	log *logger.Logger,
	metrics repository.Metrics,
	renderer repository.Renderer,
	loop *middleware.EventLoop,
	store repository.SettingsStore,
	cacheSvc cache.Service,
	data, train, misc repository.ChannelStream,
) (*Chart, error) {
	settings, err := store.Load()
	if err != nil {
		// Corrupt stores fall back to defaults inside Load; anything left
		// over here is worth surfacing but not fatal.
		log.Warn("settings load degraded", logger.Error(err))
	}
	if settings == nil {
		return nil, fmt.Errorf("settings unavailable: %w", err)
	}

	return &Chart{
		cfg:        cfg,
		log:        log,
		metrics:    metrics,
		renderer:   renderer,
		loop:       loop,
		store:      store,
		cache:      cacheSvc,
		data:       data,
		train:      train,
		misc:       misc,
		norm:       NewNormalizer(cfg.Chart.MaxDataPoints, log),
		tickerInfo: make(map[string]models.TickerInfo),
		view:       models.NewViewState(settings),
		settings:   settings,
	}, nil
}

// run executes fn on the event loop and blocks until it finished. All public
// operations funnel through here so state stays loop-confined.
func (c *Chart) run(fn func()) error {
	done := make(chan struct{})
	if !c.loop.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrBusy
	}
	<-done
	return nil
}

// SetTicker switches the active ticker: clears data and viewport, aborts any
// selection, requests a fresh snapshot, and arms the arrival timeout.
func (c *Chart) SetTicker(ticker string) error {
	return c.run(func() {
		if c.sel.phase != selInactive {
			c.emitCancelSave()
			c.resetSelection()
		}
		c.ticker = ticker
		c.candles = nil
		c.chain = nil
		c.view.Loaded = false
		c.view.Viewport.Clear()
		c.requestTickerData()
		c.armDataTimeout()
	})
}

// Toggle flips a view toggle and re-renders. Trace-affecting toggles force a
// full draw; decoration toggles go out as a patch.
func (c *Chart) Toggle(name string) (bool, error) {
	var (
		value bool
		opErr error
	)
	err := c.run(func() {
		v, ok := c.view.Toggle(name)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrUnknownToggle, name)
			return
		}
		value = v
		if !c.view.Loaded {
			return
		}
		switch name {
		case "momentum", "colorbyprediction":
			c.redraw()
		default:
			c.patchDecorations()
		}
	})
	if err != nil {
		return false, err
	}
	return value, opErr
}

// Settings returns a copy of the current persisted settings.
func (c *Chart) Settings() (*models.AppSettings, error) {
	var out models.AppSettings
	err := c.run(func() { out = *c.settings })
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings persists new settings, applies the palette, and re-requests
// the active ticker so server-side signal tunables take effect.
func (c *Chart) UpdateSettings(s *models.AppSettings) error {
	var opErr error
	err := c.run(func() {
		if err := c.store.Save(s); err != nil {
			opErr = err
			return
		}
		c.settings = s
		c.view.Palette = s.Colors
		if c.ticker != "" && c.sel.phase == selInactive {
			c.requestTickerData()
			c.armDataTimeout()
		}
		if c.view.Loaded {
			c.redraw()
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// Chain returns the current trade chain narration.
func (c *Chart) Chain() (models.TradeChain, error) {
	var out models.TradeChain
	err := c.run(func() {
		out = append(models.TradeChain{}, c.chain...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Status aggregates connectivity, load state, selection phase, training
// progress, and the most recent banner.
func (c *Chart) Status() (*models.StatusResponse, error) {
	out := &models.StatusResponse{Channels: make(map[string]string, 3)}
	err := c.run(func() {
		for _, ch := range []repository.ChannelStream{c.data, c.train, c.misc} {
			state := "disconnected"
			if ch.IsConnected() {
				state = "connected"
			}
			out.Channels[ch.Name()] = state
		}
		out.Ticker = c.ticker
		out.Loaded = c.view.Loaded
		out.Selection = c.sel.phase.String()
		out.Progress = c.progress
		out.TotalPatterns = c.totalPatterns
		if col := c.log.Collector(); col != nil {
			if e, ok := col.Last(); ok {
				out.Banner = e.Message
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SyncViewport remembers the renderer's reported axis ranges. Nil ranges
// mean the user reset to autorange.
func (c *Chart) SyncViewport(x, y *[2]float64) error {
	return c.run(func() {
		c.view.Viewport.XRange = x
		c.view.Viewport.YRange = y
	})
}

// requestTickerData emits request_ticker_data with the current signal
// tunables. Emit failures become banners; the reconnect path retries.
func (c *Chart) requestTickerData() {
	req := models.TickerDataRequest{
		Ticker:   c.ticker,
		Settings: c.settings.SignalSettings(),
	}
	if err := c.data.Emit(models.EventRequestTickerData, req); err != nil {
		c.metrics.RecordError("emit")
		c.log.Warn("ticker request failed", logger.String("ticker", c.ticker), logger.Error(err))
	}
}

// armDataTimeout schedules the no-data banner. Arrival and ticker switches
// cancel it; a stale timer for a previous ticker is a no-op.
func (c *Chart) armDataTimeout() {
	if c.cancelDataTimeout != nil {
		c.cancelDataTimeout()
	}
	ticker := c.ticker
	c.cancelDataTimeout = c.loop.PostDelayed(c.cfg.Backend.DataTimeout, func() {
		if c.ticker != ticker || c.view.Loaded {
			return
		}
		c.metrics.RecordError("timeout")
		c.log.Error("no data received for ticker",
			logger.String("ticker", ticker),
			logger.Int64("timeout_ms", c.cfg.Backend.DataTimeout.Milliseconds()))
	})
}

func (c *Chart) stopDataTimeout() {
	if c.cancelDataTimeout != nil {
		c.cancelDataTimeout()
		c.cancelDataTimeout = nil
	}
}

// applySnapshot is the ticker_data path: normalize, rebuild derived state,
// full draw.
func (c *Chart) applySnapshot(snap *models.RawSnapshot) {
	if c.sel.phase != selInactive {
		// Mid-selection snapshots are discarded, not buffered; leaving the
		// selection re-requests fresh data.
		c.metrics.RecordSnapshot("suppressed")
		return
	}

	candles, dropped, err := c.norm.Normalize(snap, c.ticker)
	if dropped > 0 {
		c.metrics.RecordRecordsDropped(dropped)
	}
	if err != nil {
		var stale *ErrStaleSnapshot
		if errors.As(err, &stale) {
			// A reply for another ticker; the active request is still
			// outstanding, so the timeout stays armed.
			c.metrics.RecordSnapshot("stale")
			c.log.Debug("snapshot discarded", logger.Error(err))
			return
		}
		// The backend answered, just not usably. Arrival clears the
		// timeout either way; a second banner would be noise.
		c.stopDataTimeout()
		c.metrics.RecordSnapshot("invalid")
		c.view.Loaded = false
		c.log.Error("snapshot rejected", logger.String("ticker", c.ticker), logger.Error(err))
		return
	}

	c.stopDataTimeout()
	c.metrics.RecordSnapshot("applied")
	c.candles = candles
	c.view.Loaded = true
	for k, v := range snap.TickerInfo {
		c.tickerInfo[k] = v
	}
	c.chain = BuildTradeChain(candles)
	c.metrics.RecordLastClose(c.ticker, candles[len(candles)-1].Close)
	c.redraw()
}

// redraw derives the full scene and issues it, gated by the single-flight
// token. A held token drops the draw; the next trigger re-derives.
func (c *Chart) redraw() {
	if !c.renderEngaged.CompareAndSwap(false, true) {
		c.metrics.RecordRenderDropped(renderKindDraw)
		return
	}
	c.metrics.RecordRenderOp(renderKindDraw)

	scene := BuildScene(SceneInput{
		Ticker:          c.ticker,
		Candles:         c.candles,
		View:            c.view,
		SelectionActive: c.sel.phase != selInactive,
		PendingRange:    c.sel.pendingRange,
	})
	start := time.Now()
	c.renderer.FullDraw(scene, func(err error) {
		c.renderEngaged.Store(false)
		c.metrics.RecordLatency(renderKindDraw, time.Since(start).Seconds())
		if err != nil {
			c.metrics.RecordError("render")
			c.log.Error("full draw failed", logger.String("ticker", scene.Ticker), logger.Error(err))
		}
	})
}

// applyPatch issues a decoration/layout patch under the same token.
func (c *Chart) applyPatch(p *models.Patch) {
	if !c.renderEngaged.CompareAndSwap(false, true) {
		c.metrics.RecordRenderDropped(renderKindPatch)
		return
	}
	c.metrics.RecordRenderOp(renderKindPatch)

	start := time.Now()
	c.renderer.Patch(p, func(err error) {
		c.renderEngaged.Store(false)
		c.metrics.RecordLatency(renderKindPatch, time.Since(start).Seconds())
		if err != nil {
			c.metrics.RecordError("render")
			c.log.Error("patch failed", logger.Error(err))
		}
	})
}

// patchDecorations re-derives shapes and annotations only.
func (c *Chart) patchDecorations() {
	shapes := BuildShapes(c.candles, c.view, c.sel.phase != selInactive, c.sel.pendingRange)
	anns := BuildAnnotations(c.candles, c.view)
	if shapes == nil {
		shapes = []models.Shape{}
	}
	if anns == nil {
		anns = []models.Annotation{}
	}
	c.applyPatch(&models.Patch{Shapes: shapes, Annotations: anns})
}
