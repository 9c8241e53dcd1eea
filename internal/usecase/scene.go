package usecase

import (
	"fmt"
	"sort"
	"time"

	"Delphi/internal/domain/models"
	"Delphi/pkg/util"
)

// Trading session boundaries, minutes from UTC midnight. The aftermarket
// window crosses midnight and is emitted as two rects.
const (
	premarketStartMin = 10 * 60
	premarketEndMin   = 15*60 + 30
	normalEndMin      = 22 * 60
	aftermarketEndMin = 2 * 60 // next day
)

// Fixed decoration colors not covered by the user palette.
const (
	colorNoPrediction = "#808080"
	colorBuyBg        = "#2e7d32"
	colorSafeBuyBg    = "#00e676"
	colorSellBg       = "#c62828"
	colorPremarket    = "#4169e1"
	colorNormalHours  = "#808080"
	colorAftermarket  = "#9370db"
	colorSelection    = "#ffa500"
)

// SceneInput is everything scene derivation reads. Derivation is pure: same
// input, same scene.
type SceneInput struct {
	Ticker          string
	Candles         []models.Candle
	View            *models.ViewState
	SelectionActive bool
	PendingRange    *[2]int64
}

// BuildScene derives the full renderer input from candles and view state.
func BuildScene(in SceneInput) *models.Scene {
	v := in.View
	scene := &models.Scene{
		Ticker: in.Ticker,
		Traces: buildTraces(in.Candles, v),
		Layout: models.Layout{
			DragMode:      dragMode(in.SelectionActive),
			XRange:        v.Viewport.XRange,
			YRange:        v.Viewport.YRange,
			XAutorange:    v.Viewport.XRange == nil,
			YAutorange:    v.Viewport.YRange == nil,
			SecondaryAxis: v.ShowMomentumPPO,
			Shapes:        BuildShapes(in.Candles, v, in.SelectionActive, in.PendingRange),
			Annotations:   BuildAnnotations(in.Candles, v),
		},
	}
	return scene
}

func dragMode(selectionActive bool) string {
	if selectionActive {
		return models.DragSelect
	}
	return models.DragZoom
}

func buildTraces(candles []models.Candle, v *models.ViewState) []models.Trace {
	traces := make([]models.Trace, 0, 5)

	if v.ColorByPrediction {
		traces = append(traces, predictionTraces(candles, v)...)
	} else {
		t := models.Trace{
			Type:      models.TraceCandlestick,
			Name:      "Price",
			YAxis:     "y",
			UpColor:   v.Palette.Up,
			DownColor: v.Palette.Down,
		}
		for _, c := range candles {
			appendCandle(&t, c)
		}
		traces = append(traces, t)
	}

	if v.ShowMomentumPPO {
		line := models.Trace{
			Type:  models.TraceLine,
			Name:  "Momentum PPO",
			YAxis: "y2",
			Color: v.Palette.PPOLine,
		}
		for _, c := range candles {
			if c.MomentumPPOSm == nil {
				continue
			}
			line.X = append(line.X, c.Timestamp)
			line.Y = append(line.Y, *c.MomentumPPOSm)
		}
		traces = append(traces, line)
	}

	return traces
}

// predictionTraces partitions candles into one series per prediction class
// so each class renders in its own color.
func predictionTraces(candles []models.Candle, v *models.ViewState) []models.Trace {
	classes := []struct {
		prediction int
		name       string
		color      string
	}{
		{0, "No prediction", colorNoPrediction},
		{models.ClassUp, "Predicted up", v.Palette.Up},
		{models.ClassDown, "Predicted down", v.Palette.Down},
		{models.ClassNeutral, "Predicted neutral", v.Palette.Neutral},
	}

	traces := make([]models.Trace, 0, len(classes))
	for _, cl := range classes {
		t := models.Trace{
			Type:  models.TraceCandlestick,
			Name:  cl.name,
			YAxis: "y",
			Color: cl.color,
		}
		for _, c := range candles {
			if c.Prediction != cl.prediction {
				continue
			}
			appendCandle(&t, c)
		}
		if len(t.X) == 0 {
			continue
		}
		traces = append(traces, t)
	}
	return traces
}

func appendCandle(t *models.Trace, c models.Candle) {
	t.X = append(t.X, c.Timestamp)
	t.Open = append(t.Open, c.Open)
	t.High = append(t.High, c.High)
	t.Low = append(t.Low, c.Low)
	t.Close = append(t.Close, c.Close)
	t.Hover = append(t.Hover, c.Date)
}

// BuildShapes derives the toggle-gated decoration shapes: the price line,
// session bands, and the selection highlight.
func BuildShapes(candles []models.Candle, v *models.ViewState, selectionActive bool, pendingRange *[2]int64) []models.Shape {
	var shapes []models.Shape

	if v.ShowPriceLine {
		if y, ok := latestClose(candles); ok {
			shapes = append(shapes, models.Shape{
				Type:  models.ShapeLine,
				XRef:  models.RefPaper,
				YRef:  models.RefY,
				X0:    0,
				X1:    1,
				Y0:    y,
				Y1:    y,
				Color: v.Palette.Neutral,
				Width: 1,
				Dash:  "dot",
			})
		}
	}

	if v.ShowSessions {
		shapes = append(shapes, sessionBands(candles)...)
	}

	if selectionActive && pendingRange != nil {
		shapes = append(shapes, SelectionShape(pendingRange))
	}

	return shapes
}

// SelectionShape is the translucent highlight over the pending range.
func SelectionShape(r *[2]int64) models.Shape {
	return models.Shape{
		Type:    models.ShapeRect,
		XRef:    models.RefX,
		YRef:    models.RefPaper,
		X0:      float64(r[0]),
		X1:      float64(r[1]),
		Y0:      0,
		Y1:      1,
		Color:   colorSelection,
		Opacity: 0.25,
		Layer:   "below",
	}
}

// latestClose reads the final candle's close. No backward scan: a NaN
// close on the latest candle means no price line at all.
func latestClose(candles []models.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	c := candles[len(candles)-1].Close
	if !util.IsFinite(c) {
		return 0, false
	}
	return c, true
}

// sessionBands emits one rect per trading session for every UTC day present
// in the data. The aftermarket band crosses midnight and splits in two.
func sessionBands(candles []models.Candle) []models.Shape {
	days := make(map[int64]bool)
	for _, c := range candles {
		days[dayStartMillis(c.Timestamp)] = true
	}
	starts := make([]int64, 0, len(days))
	for d := range days {
		starts = append(starts, d)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	shapes := make([]models.Shape, 0, len(starts)*4)
	for _, day := range starts {
		shapes = append(shapes,
			sessionRect(day, premarketStartMin, premarketEndMin, colorPremarket, 0.08),
			sessionRect(day, premarketEndMin, normalEndMin, colorNormalHours, 0.03),
			sessionRect(day, normalEndMin, 24*60, colorAftermarket, 0.08),
			sessionRect(day+millisPerDay, 0, aftermarketEndMin, colorAftermarket, 0.08),
		)
	}
	return shapes
}

const millisPerDay = int64(24 * 60 * 60 * 1000)

func dayStartMillis(ms int64) int64 {
	t := time.UnixMilli(ms).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

func sessionRect(dayStart int64, fromMin, toMin int, color string, opacity float64) models.Shape {
	return models.Shape{
		Type:    models.ShapeRect,
		XRef:    models.RefX,
		YRef:    models.RefPaper,
		X0:      float64(dayStart + int64(fromMin)*60_000),
		X1:      float64(dayStart + int64(toMin)*60_000),
		Y0:      0,
		Y1:      1,
		Color:   color,
		Opacity: opacity,
		Layer:   "below",
	}
}

// BuildAnnotations derives signal and classification markers.
func BuildAnnotations(candles []models.Candle, v *models.ViewState) []models.Annotation {
	var anns []models.Annotation

	if v.ShowSignals {
		for _, c := range candles {
			switch c.Signals {
			case models.SignalBuy:
				text, bg := "Buy", colorBuyBg
				if c.SafeBuy == 1 {
					text, bg = "Safe Buy", colorSafeBuyBg
				}
				anns = append(anns, models.Annotation{
					X:          c.Timestamp,
					Y:          c.Low,
					Text:       text,
					ShowArrow:  true,
					ArrowHead:  2,
					Ay:         25,
					FontColor:  "#ffffff",
					FontSize:   10,
					Background: bg,
					BorderPad:  2,
					YAnchor:    "top",
				})
			case models.SignalSell:
				pct := "0.00"
				if util.IsFinite(c.SignalChangePct) {
					pct = fmt.Sprintf("%.2f", c.SignalChangePct)
				}
				anns = append(anns, models.Annotation{
					X:          c.Timestamp,
					Y:          c.High,
					Text:       fmt.Sprintf("Sell (%s%%)", pct),
					ShowArrow:  true,
					ArrowHead:  2,
					Ay:         -25,
					FontColor:  "#ffffff",
					FontSize:   10,
					Background: colorSellBg,
					BorderPad:  2,
					YAnchor:    "bottom",
				})
			}
		}
	}

	if v.ShowClassifications {
		for _, c := range candles {
			if c.Classified != 1 {
				continue
			}
			switch c.Classification {
			case models.ClassUp:
				anns = append(anns, models.Annotation{
					X:          c.Timestamp,
					Y:          c.Low * 0.98,
					ShowArrow:  true,
					ArrowHead:  2,
					Ay:         20,
					ArrowColor: v.Palette.Up,
				})
			case models.ClassDown:
				anns = append(anns, models.Annotation{
					X:          c.Timestamp,
					Y:          c.High * 1.02,
					ShowArrow:  true,
					ArrowHead:  2,
					Ay:         -20,
					ArrowColor: v.Palette.Down,
				})
			case models.ClassNeutral:
				anns = append(anns, models.Annotation{
					X:         c.Timestamp,
					Y:         c.Low * 0.98,
					Text:      "-",
					ShowArrow: false,
					FontColor: colorNoPrediction,
					FontSize:  12,
					YAnchor:   "top",
				})
			}
		}
	}

	return anns
}
