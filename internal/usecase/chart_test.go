package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"Delphi/internal/domain/models"
	"Delphi/internal/middleware"
	"Delphi/internal/service/settings"
	"Delphi/pkg/cache"
	"Delphi/pkg/config"
)

type fakeMetrics struct {
	mu                sync.Mutex
	snapshots         map[string]int
	renderOps         map[string]int
	renderDropped     map[string]int
	errorsByKind      map[string]int
	recordsDropped    int
	patternsSubmitted int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		snapshots:     make(map[string]int),
		renderOps:     make(map[string]int),
		renderDropped: make(map[string]int),
		errorsByKind:  make(map[string]int),
	}
}

func (m *fakeMetrics) RecordChannelState(string, bool) {}
func (m *fakeMetrics) RecordSnapshot(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[outcome]++
}
func (m *fakeMetrics) RecordRecordsDropped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordsDropped += n
}
func (m *fakeMetrics) RecordRenderOp(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderOps[kind]++
}
func (m *fakeMetrics) RecordRenderDropped(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderDropped[kind]++
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByKind[kind]++
}
func (m *fakeMetrics) RecordPatternsSubmitted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patternsSubmitted += n
}
func (m *fakeMetrics) RecordLastClose(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}

func (m *fakeMetrics) snapshot(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[outcome]
}

func (m *fakeMetrics) dropped(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderDropped[kind]
}

func (m *fakeMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorsByKind[kind]
}

type fakeEmit struct {
	event   string
	payload interface{}
}

type fakeChannel struct {
	name string

	mu        sync.Mutex
	emits     []fakeEmit
	connected bool
}

func (f *fakeChannel) Name() string                    { return f.name }
func (f *fakeChannel) Connect(context.Context) error   { f.setConnected(true); return nil }
func (f *fakeChannel) Reconnect(context.Context) error { f.setConnected(true); return nil }
func (f *fakeChannel) Close() error                    { f.setConnected(false); return nil }
func (f *fakeChannel) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakeChannel) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}
func (f *fakeChannel) Emit(event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, fakeEmit{event: event, payload: payload})
	return nil
}
func (f *fakeChannel) Read(context.Context) (<-chan models.Envelope, <-chan error) {
	return make(chan models.Envelope), make(chan error)
}
func (f *fakeChannel) emitted(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.emits {
		if e.event == event {
			n++
		}
	}
	return n
}

type fakeRenderer struct {
	auto bool

	mu      sync.Mutex
	draws   []*models.Scene
	patches []*models.Patch
	pending []func(error)
}

func (r *fakeRenderer) FullDraw(scene *models.Scene, done func(error)) {
	r.mu.Lock()
	r.draws = append(r.draws, scene)
	auto := r.auto
	if !auto {
		r.pending = append(r.pending, done)
	}
	r.mu.Unlock()
	if auto {
		done(nil)
	}
}

func (r *fakeRenderer) Patch(patch *models.Patch, done func(error)) {
	r.mu.Lock()
	r.patches = append(r.patches, patch)
	auto := r.auto
	if !auto {
		r.pending = append(r.pending, done)
	}
	r.mu.Unlock()
	if auto {
		done(nil)
	}
}

func (r *fakeRenderer) drawCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.draws)
}

func (r *fakeRenderer) patchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches)
}

type fakeStore struct {
	s *models.AppSettings
}

func (f *fakeStore) Load() (*models.AppSettings, error) { return f.s, nil }
func (f *fakeStore) Save(s *models.AppSettings) error   { f.s = s; return nil }

type chartFixture struct {
	chart    *Chart
	renderer *fakeRenderer
	metrics  *fakeMetrics
	data     *fakeChannel
	train    *fakeChannel
	misc     *fakeChannel
}

func newChartFixture(t *testing.T, autoRender bool) *chartFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.Backend.DataTimeout = 50 * time.Millisecond
	cfg.Chart.MaxDataPoints = 1000
	cfg.Chart.PatternLength = 5
	cfg.Chart.SelectDebounce = 20 * time.Millisecond
	cfg.Chart.CompleteResetDelay = 10 * time.Millisecond
	cfg.Cache.TTL = time.Minute

	s, err := settings.Defaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}

	log := testLogger(t)
	loop := middleware.NewEventLoop()
	loop.Start()
	t.Cleanup(loop.Stop)

	f := &chartFixture{
		renderer: &fakeRenderer{auto: autoRender},
		metrics:  newFakeMetrics(),
		data:     &fakeChannel{name: "data", connected: true},
		train:    &fakeChannel{name: "train", connected: true},
		misc:     &fakeChannel{name: "misc", connected: true},
	}
	f.chart = &Chart{
		cfg:        cfg,
		log:        log,
		metrics:    f.metrics,
		renderer:   f.renderer,
		loop:       loop,
		store:      &fakeStore{s: s},
		cache:      cache.NewMemoryCache(),
		data:       f.data,
		train:      f.train,
		misc:       f.misc,
		norm:       NewNormalizer(cfg.Chart.MaxDataPoints, log),
		tickerInfo: make(map[string]models.TickerInfo),
		view:       models.NewViewState(s),
		settings:   s,
	}
	return f
}

const fixtureBase = int64(1717400100000)

func validCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		ppo := 0.5
		c := models.Candle{
			Timestamp:     fixtureBase + int64(i)*60000,
			Date:          "2024-06-03 07:35:00",
			Open:          100,
			High:          102,
			Low:           99,
			Close:         100.5,
			Volume:        1000,
			MomentumPPOSm: &ppo,
			Features:      make(map[string]float64),
		}
		for _, name := range models.TAFeatures {
			if !models.IsStructFeature(name) {
				c.Features[name] = 1
			}
		}
		out[i] = c
	}
	return out
}

func (f *chartFixture) load(t *testing.T, candles []models.Candle) {
	t.Helper()
	err := f.chart.run(func() {
		f.chart.ticker = "AAPL"
		f.chart.candles = candles
		f.chart.view.Loaded = true
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
}

func candleTS(i int) int64 { return fixtureBase + int64(i)*60000 }

func TestSingleFlightTokenGuardsRenderer(t *testing.T) {
	f := newChartFixture(t, false)
	f.load(t, validCandles(10))

	if err := f.chart.run(func() { f.chart.redraw() }); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if f.renderer.drawCount() != 1 {
		t.Fatalf("draws = %d", f.renderer.drawCount())
	}

	// second apply while the first is in flight is dropped
	if err := f.chart.run(func() { f.chart.redraw() }); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if f.renderer.drawCount() != 1 {
		t.Fatalf("guarded draw reached renderer, draws = %d", f.renderer.drawCount())
	}
	if f.metrics.dropped(renderKindDraw) != 1 {
		t.Fatalf("render dropped = %d", f.metrics.dropped(renderKindDraw))
	}

	// completion releases the token exactly once
	f.renderer.mu.Lock()
	done := f.renderer.pending[0]
	f.renderer.mu.Unlock()
	done(nil)
	if f.chart.renderEngaged.Load() {
		t.Fatalf("token still held after completion")
	}

	if err := f.chart.run(func() { f.chart.redraw() }); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if f.renderer.drawCount() != 2 {
		t.Fatalf("draws after release = %d", f.renderer.drawCount())
	}
}

func TestRenderFailureReleasesToken(t *testing.T) {
	f := newChartFixture(t, false)
	f.load(t, validCandles(5))

	_ = f.chart.run(func() { f.chart.redraw() })
	f.renderer.mu.Lock()
	done := f.renderer.pending[0]
	f.renderer.mu.Unlock()
	done(errors.New("peer gone"))

	if f.chart.renderEngaged.Load() {
		t.Fatalf("token held after failed draw")
	}
	if f.metrics.errCount("render") != 1 {
		t.Fatalf("render errors = %d", f.metrics.errCount("render"))
	}
}

func TestSnapshotSuppressedDuringSelection(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(10))

	if err := f.chart.EnterSelection(); err != nil {
		t.Fatalf("enter: %v", err)
	}

	snap := &models.RawSnapshot{
		Tickers: []string{"AAPL"},
		Data:    []map[string]interface{}{rawRecord(candleTS(20), 120)},
	}
	_ = f.chart.run(func() { f.chart.applySnapshot(snap) })

	if f.metrics.snapshot("suppressed") != 1 {
		t.Fatalf("suppressed = %d", f.metrics.snapshot("suppressed"))
	}
	_ = f.chart.run(func() {
		if len(f.chart.candles) != 10 {
			t.Errorf("candles mutated during selection: %d", len(f.chart.candles))
		}
	})
}

func TestStaleSnapshotDiscarded(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(3))

	snap := &models.RawSnapshot{
		Tickers: []string{"MSFT"},
		Data:    []map[string]interface{}{rawRecord(candleTS(0), 100)},
	}
	_ = f.chart.run(func() { f.chart.applySnapshot(snap) })

	if f.metrics.snapshot("stale") != 1 {
		t.Fatalf("stale = %d", f.metrics.snapshot("stale"))
	}
	if f.renderer.drawCount() != 0 {
		t.Fatalf("stale snapshot reached renderer")
	}
}

func TestCommitSelectionSpanBoundary(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(10))

	// index 4 is the first candle with a full trailing window behind it
	if err := f.chart.EnterSelection(); err != nil {
		t.Fatalf("enter: %v", err)
	}
	count, err := f.chart.CommitSelection(candleTS(4), candleTS(4))
	if err != nil {
		t.Fatalf("commit at boundary: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
	if err := f.chart.CancelSelection(); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// a range that ends one candle earlier has nothing submittable
	if err := f.chart.EnterSelection(); err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	requestsBefore := f.data.emitted(models.EventRequestTickerData)
	_, err = f.chart.CommitSelection(candleTS(0), candleTS(3))
	if !errors.Is(err, ErrNoQualifyingCandles) {
		t.Fatalf("expected ErrNoQualifyingCandles, got %v", err)
	}
	// the failed commit exits the workflow and re-requests data
	var phase selectionPhase
	_ = f.chart.run(func() { phase = f.chart.sel.phase })
	if phase != selInactive {
		t.Fatalf("phase after failed commit = %v", phase)
	}
	if f.data.emitted(models.EventRequestTickerData) != requestsBefore+1 {
		t.Fatalf("no re-request after forced exit")
	}
}

func TestSubmitIsAllOrNothing(t *testing.T) {
	f := newChartFixture(t, true)
	candles := validCandles(10)
	candles[3].MomentumPPOSm = nil // poisons the windows for indices 3..7
	f.load(t, candles)

	if err := f.chart.EnterSelection(); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if _, err := f.chart.CommitSelection(candleTS(4), candleTS(9)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, err := f.chart.SubmitSelection(1)
	var wve *WindowValidationError
	if !errors.As(err, &wve) {
		t.Fatalf("expected WindowValidationError, got %v", err)
	}
	if len(wve.Problems) == 0 {
		t.Fatalf("no problems collected")
	}
	if f.train.emitted(models.EventSavePatterns) != 0 {
		t.Fatalf("batch left despite validation failure")
	}

	// workflow survives the failure; a clean range submits
	var phase selectionPhase
	_ = f.chart.run(func() { phase = f.chart.sel.phase })
	if phase != selConfirming {
		t.Fatalf("phase after failed submit = %v", phase)
	}
}

func TestSubmitSendsOneBatch(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(10))

	if err := f.chart.EnterSelection(); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if _, err := f.chart.CommitSelection(candleTS(6), candleTS(8)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	count, err := f.chart.SubmitSelection(2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if count != 3 {
		t.Fatalf("patterns = %d", count)
	}
	if f.train.emitted(models.EventSavePatterns) != 1 {
		t.Fatalf("save_patterns emitted %d times", f.train.emitted(models.EventSavePatterns))
	}

	f.train.mu.Lock()
	req := f.train.emits[len(f.train.emits)-1].payload.(models.SavePatternsRequest)
	f.train.mu.Unlock()
	if len(req.Patterns) != 3 || len(req.Labels) != 3 {
		t.Fatalf("batch shape: %d patterns, %d labels", len(req.Patterns), len(req.Labels))
	}
	for _, p := range req.Patterns {
		if len(p) != 5 {
			t.Fatalf("window length %d, want 5", len(p))
		}
	}
	for _, l := range req.Labels {
		if l != 2 {
			t.Fatalf("label = %d", l)
		}
	}
}

func TestTrainCompleteResetsAfterDelay(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(10))

	_ = f.chart.EnterSelection()
	_, _ = f.chart.CommitSelection(candleTS(6), candleTS(8))
	if _, err := f.chart.SubmitSelection(1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	requestsBefore := f.data.emitted(models.EventRequestTickerData)
	payload, _ := json.Marshal(models.TrainComplete{Status: models.TrainStatusSuccess})
	_ = f.chart.run(func() {
		f.chart.dispatch("train", models.Envelope{Event: models.EventTrainComplete, Payload: payload})
	})

	time.Sleep(60 * time.Millisecond)

	var phase selectionPhase
	_ = f.chart.run(func() { phase = f.chart.sel.phase })
	if phase != selInactive {
		t.Fatalf("phase after train_complete = %v", phase)
	}
	if f.data.emitted(models.EventRequestTickerData) != requestsBefore+1 {
		t.Fatalf("no data re-request after reset")
	}
}

func TestReconnectRerequestsActiveTicker(t *testing.T) {
	f := newChartFixture(t, true)

	if err := f.chart.SetTicker("AAPL"); err != nil {
		t.Fatalf("set ticker: %v", err)
	}
	if f.data.emitted(models.EventRequestTickerData) != 1 {
		t.Fatalf("requests after switch = %d", f.data.emitted(models.EventRequestTickerData))
	}

	_ = f.chart.run(func() { f.chart.onChannelUp("data") })
	if f.data.emitted(models.EventRequestTickerData) != 2 {
		t.Fatalf("requests after reconnect = %d", f.data.emitted(models.EventRequestTickerData))
	}
}

func TestDataTimeoutBanner(t *testing.T) {
	f := newChartFixture(t, true)

	if err := f.chart.SetTicker("AAPL"); err != nil {
		t.Fatalf("set ticker: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	if f.metrics.errCount("timeout") != 1 {
		t.Fatalf("timeout errors = %d", f.metrics.errCount("timeout"))
	}
}

func TestRejectedSnapshotClearsDataTimeout(t *testing.T) {
	f := newChartFixture(t, true)

	if err := f.chart.SetTicker("AAPL"); err != nil {
		t.Fatalf("set ticker: %v", err)
	}

	// The backend answered for the right ticker, just unusably. The
	// validity banner already covers it; no timeout banner on top.
	snap := &models.RawSnapshot{Tickers: []string{"AAPL"}}
	_ = f.chart.run(func() { f.chart.applySnapshot(snap) })
	if f.metrics.snapshot("invalid") != 1 {
		t.Fatalf("invalid = %d", f.metrics.snapshot("invalid"))
	}

	time.Sleep(80 * time.Millisecond)
	if f.metrics.errCount("timeout") != 0 {
		t.Fatalf("timeout errors = %d after rejected arrival", f.metrics.errCount("timeout"))
	}
}

func TestLiveSelectionDebounce(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(10))

	if err := f.chart.EnterSelection(); err != nil {
		t.Fatalf("enter: %v", err)
	}
	patchesAfterEnter := f.renderer.patchCount()

	if err := f.chart.SelectionRange(candleTS(4), candleTS(6)); err != nil {
		t.Fatalf("range 1: %v", err)
	}
	if err := f.chart.SelectionRange(candleTS(5), candleTS(8)); err != nil {
		t.Fatalf("range 2: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	var r *[2]int64
	_ = f.chart.run(func() { r = f.chart.sel.pendingRange })
	if r == nil || r[0] != candleTS(5) || r[1] != candleTS(8) {
		t.Fatalf("pending range = %v", r)
	}
	if got := f.renderer.patchCount() - patchesAfterEnter; got != 1 {
		t.Fatalf("decorations patched %d times, want 1 after debounce", got)
	}
}

func TestLiveSelectionTooEarlyClearsHighlight(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(10))

	_ = f.chart.EnterSelection()
	if err := f.chart.SelectionRange(candleTS(0), candleTS(2)); err != nil {
		t.Fatalf("range: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	var r *[2]int64
	var phase selectionPhase
	_ = f.chart.run(func() {
		r = f.chart.sel.pendingRange
		phase = f.chart.sel.phase
	})
	if r != nil {
		t.Fatalf("highlight kept for unsubmittable range")
	}
	if phase != selActive {
		t.Fatalf("phase changed to %v", phase)
	}
}

func TestToggleUnknownName(t *testing.T) {
	f := newChartFixture(t, true)
	if _, err := f.chart.Toggle("bogus"); !errors.Is(err, ErrUnknownToggle) {
		t.Fatalf("expected ErrUnknownToggle, got %v", err)
	}
}

func TestTickerSwitchClearsViewport(t *testing.T) {
	f := newChartFixture(t, true)
	f.load(t, validCandles(5))

	if err := f.chart.SyncViewport(&[2]float64{1, 2}, &[2]float64{3, 4}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := f.chart.SetTicker("MSFT"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	_ = f.chart.run(func() {
		if f.chart.view.Viewport.XRange != nil || f.chart.view.Viewport.YRange != nil {
			t.Errorf("viewport kept across ticker switch")
		}
		if f.chart.view.Loaded {
			t.Errorf("loaded flag kept across ticker switch")
		}
	})
}
