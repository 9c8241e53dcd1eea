package usecase

import (
	"errors"
	"fmt"
	"strings"

	"Delphi/internal/domain/models"
	"Delphi/pkg/logger"
	"Delphi/pkg/util"
)

type selectionPhase int

const (
	selInactive selectionPhase = iota
	selActive
	selConfirming
	selSubmitting
)

func (p selectionPhase) String() string {
	switch p {
	case selActive:
		return "active"
	case selConfirming:
		return "confirming"
	case selSubmitting:
		return "submitting"
	}
	return "inactive"
}

var (
	// ErrSelectionState means the requested transition is not legal from
	// the current phase.
	ErrSelectionState = errors.New("selection not in the required state")
	// ErrNoQualifyingCandles means the committed range holds nothing a
	// trailing window can be built for.
	ErrNoQualifyingCandles = errors.New("no candles in range with enough history")
)

// WindowValidationError aggregates every problem found across the selected
// windows. Submission is all-or-nothing: one bad window blocks the batch.
type WindowValidationError struct {
	Problems []string
}

func (e *WindowValidationError) Error() string {
	return fmt.Sprintf("%d invalid pattern windows: %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// selection is the labeling workflow state, event-loop confined.
type selection struct {
	phase        selectionPhase
	pendingRange *[2]int64
	committed    []int // qualifying candle indices

	liveRange      *[2]int64 // latest drag bounds awaiting the debounce
	cancelDebounce func()
}

// EnterSelection arms the labeling workflow: select dragmode, snapshots
// suppressed until exit.
func (c *Chart) EnterSelection() error {
	var opErr error
	err := c.run(func() {
		if !c.view.Loaded {
			opErr = ErrNotLoaded
			return
		}
		if c.sel.phase != selInactive {
			opErr = fmt.Errorf("%w: already %s", ErrSelectionState, c.sel.phase)
			return
		}
		c.sel.phase = selActive
		c.applyPatch(&models.Patch{DragMode: models.DragSelect})
	})
	if err != nil {
		return err
	}
	return opErr
}

// SelectionRange records a live drag. Updates are debounced; only the last
// range inside the window is evaluated and highlighted.
func (c *Chart) SelectionRange(start, end int64) error {
	var opErr error
	err := c.run(func() {
		if c.sel.phase != selActive {
			opErr = fmt.Errorf("%w: %s", ErrSelectionState, c.sel.phase)
			return
		}
		c.sel.liveRange = &[2]int64{start, end}
		if c.sel.cancelDebounce != nil {
			c.sel.cancelDebounce()
		}
		c.sel.cancelDebounce = c.loop.PostDelayed(c.cfg.Chart.SelectDebounce, func() {
			if c.sel.phase != selActive || c.sel.liveRange == nil {
				return
			}
			c.applyLiveRange(c.sel.liveRange)
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// applyLiveRange highlights a viable drag or clears the highlight when the
// range starts too close to the beginning of the series for any trailing
// window to exist.
func (c *Chart) applyLiveRange(r *[2]int64) {
	idx := c.firstIndexAtOrAfter(r[0])
	if idx < 0 || candleMillis(c.candles, idx) > r[1] || idx < c.cfg.Chart.PatternLength-1 {
		c.log.Warn("selection needs more history before it",
			logger.Int("min_index", c.cfg.Chart.PatternLength-1))
		c.sel.pendingRange = nil
		c.patchDecorations()
		return
	}
	c.sel.pendingRange = r
	c.patchDecorations()
}

// CommitSelection locks the dragged range in and counts the qualifying
// candles. Zero qualifiers aborts the whole workflow.
func (c *Chart) CommitSelection(start, end int64) (int, error) {
	var (
		count int
		opErr error
	)
	err := c.run(func() {
		if c.sel.phase != selActive {
			opErr = fmt.Errorf("%w: %s", ErrSelectionState, c.sel.phase)
			return
		}
		if c.sel.cancelDebounce != nil {
			c.sel.cancelDebounce()
			c.sel.cancelDebounce = nil
		}
		indices := c.qualifyingIndices(start, end)
		if len(indices) == 0 {
			opErr = ErrNoQualifyingCandles
			c.metrics.RecordError("selection")
			c.exitSelection(true)
			return
		}
		c.sel.pendingRange = &[2]int64{start, end}
		c.sel.committed = indices
		c.sel.phase = selConfirming
		count = len(indices)
		c.patchDecorations()
	})
	if err != nil {
		return 0, err
	}
	return count, opErr
}

// SubmitSelection validates every trailing window and ships the batch. Any
// invalid window blocks the whole submission with the full problem list.
func (c *Chart) SubmitSelection(label int) (int, error) {
	var (
		count int
		opErr error
	)
	err := c.run(func() {
		if c.sel.phase != selConfirming {
			opErr = fmt.Errorf("%w: %s", ErrSelectionState, c.sel.phase)
			return
		}

		span := c.cfg.Chart.PatternLength
		patterns := make([][]models.Candle, 0, len(c.sel.committed))
		labels := make([]int, 0, len(c.sel.committed))
		var problems []string
		for _, idx := range c.sel.committed {
			win := c.candles[idx-span+1 : idx+1]
			problems = append(problems, windowProblems(idx, win)...)
			patterns = append(patterns, win)
			labels = append(labels, label)
		}
		if len(problems) > 0 {
			c.metrics.RecordError("validation")
			opErr = &WindowValidationError{Problems: problems}
			return
		}

		req := models.SavePatternsRequest{Ticker: c.ticker, Patterns: patterns, Labels: labels}
		if err := c.train.Emit(models.EventSavePatterns, req); err != nil {
			c.metrics.RecordError("emit")
			opErr = fmt.Errorf("submit patterns: %w", err)
			return
		}
		c.sel.phase = selSubmitting
		c.progress = 0
		c.totalPatterns = len(patterns)
		c.metrics.RecordPatternsSubmitted(len(patterns))
		count = len(patterns)
		c.log.Info("patterns submitted",
			logger.String("ticker", c.ticker),
			logger.Int("patterns", len(patterns)),
			logger.Int("label", label))
	})
	if err != nil {
		return 0, err
	}
	return count, opErr
}

// CancelSelection aborts the workflow from any phase. The cancel event is
// idempotent server-side so it goes out even when nothing was submitted.
func (c *Chart) CancelSelection() error {
	var opErr error
	err := c.run(func() {
		if c.sel.phase == selInactive {
			opErr = fmt.Errorf("%w: %s", ErrSelectionState, c.sel.phase)
			return
		}
		c.emitCancelSave()
		c.exitSelection(true)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Chart) emitCancelSave() {
	if err := c.train.Emit(models.EventCancelSave, nil); err != nil {
		c.log.Warn("cancel_save emit failed", logger.Error(err))
	}
}

// resetSelection clears workflow state without touching the renderer. Used
// on ticker switch where the follow-up draw repaints everything anyway.
func (c *Chart) resetSelection() {
	if c.sel.cancelDebounce != nil {
		c.sel.cancelDebounce()
	}
	c.sel = selection{}
	c.progress = 0
	c.totalPatterns = 0
}

// exitSelection restores zoom dragmode and the remembered viewport, lifts
// snapshot suppression, and optionally re-requests data to cover snapshots
// discarded while the selection was active.
func (c *Chart) exitSelection(requestData bool) {
	c.resetSelection()
	if c.view.Loaded {
		c.applyPatch(&models.Patch{
			Shapes:      emptyIfNil(BuildShapes(c.candles, c.view, false, nil)),
			Annotations: emptyAnnsIfNil(BuildAnnotations(c.candles, c.view)),
			DragMode:    models.DragZoom,
			XRange:      c.view.Viewport.XRange,
			YRange:      c.view.Viewport.YRange,
		})
	}
	if requestData && c.ticker != "" {
		c.requestTickerData()
		c.armDataTimeout()
	}
}

func emptyIfNil(s []models.Shape) []models.Shape {
	if s == nil {
		return []models.Shape{}
	}
	return s
}

func emptyAnnsIfNil(a []models.Annotation) []models.Annotation {
	if a == nil {
		return []models.Annotation{}
	}
	return a
}

// qualifyingIndices returns candle indices inside the inclusive range that
// have a full trailing window behind them.
func (c *Chart) qualifyingIndices(start, end int64) []int {
	minIdx := c.cfg.Chart.PatternLength - 1
	var out []int
	for i, cd := range c.candles {
		if cd.Timestamp < start || cd.Timestamp > end {
			continue
		}
		if i < minIdx {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (c *Chart) firstIndexAtOrAfter(ms int64) int {
	for i, cd := range c.candles {
		if cd.Timestamp >= ms {
			return i
		}
	}
	return -1
}

func candleMillis(candles []models.Candle, i int) int64 {
	return candles[i].Timestamp
}

// windowProblems checks one trailing window: every candle needs a valid
// display date and a finite value for every feature in the vector.
func windowProblems(idx int, win []models.Candle) []string {
	var out []string
	for pos := range win {
		cd := &win[pos]
		if _, ok := util.ValidateDate(cd.Date); !ok {
			out = append(out, fmt.Sprintf("window %d candle %d: invalid date %q", idx, pos, cd.Date))
		}
		for _, name := range models.TAFeatures {
			v, ok := featureValue(cd, name)
			if !ok || !util.IsFinite(v) {
				out = append(out, fmt.Sprintf("window %d candle %d: %s not finite", idx, pos, name))
			}
		}
	}
	return out
}

// featureValue resolves a wire feature name against the candle, whether it
// lives in a struct field or the Features map.
func featureValue(c *models.Candle, name string) (float64, bool) {
	switch name {
	case "open":
		return c.Open, true
	case "high":
		return c.High, true
	case "low":
		return c.Low, true
	case "close":
		return c.Close, true
	case "volume":
		return float64(c.Volume), true
	case "classified":
		return float64(c.Classified), true
	case "classification":
		return float64(c.Classification), true
	case "momentum_ppo_sm":
		if c.MomentumPPOSm == nil {
			return 0, false
		}
		return *c.MomentumPPOSm, true
	}
	v, ok := c.Features[name]
	return v, ok
}
