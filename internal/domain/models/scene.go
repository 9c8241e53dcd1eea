package models

// Trace kinds understood by the renderer.
const (
	TraceCandlestick = "candlestick"
	TraceLine        = "line"
)

// Trace is one plotted series.
type Trace struct {
	Type  string    `json:"type"`
	Name  string    `json:"name"`
	X     []int64   `json:"x"` // epoch ms per point
	Open  []float64 `json:"open,omitempty"`
	High  []float64 `json:"high,omitempty"`
	Low   []float64 `json:"low,omitempty"`
	Close []float64 `json:"close,omitempty"`
	Y     []float64 `json:"y,omitempty"`
	Color string    `json:"color,omitempty"`
	// UpColor/DownColor apply to candlestick traces only; Color wins when set.
	UpColor   string   `json:"upColor,omitempty"`
	DownColor string   `json:"downColor,omitempty"`
	YAxis     string   `json:"yaxis"` // "y" or "y2"
	Hover     []string `json:"hover,omitempty"`
}

// Shape kinds.
const (
	ShapeLine = "line"
	ShapeRect = "rect"
)

// Axis reference values for shape coordinates.
const (
	RefX     = "x"
	RefY     = "y"
	RefPaper = "paper"
)

// Shape is one chart decoration: the price line, a session band, or the
// selection highlight. Coordinates on a "paper" ref run 0..1; on an axis
// ref they are epoch ms (x) or price (y).
type Shape struct {
	Type    string  `json:"type"`
	XRef    string  `json:"xref"`
	YRef    string  `json:"yref"`
	X0      float64 `json:"x0"`
	X1      float64 `json:"x1"`
	Y0      float64 `json:"y0"`
	Y1      float64 `json:"y1"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity,omitempty"`
	Width   float64 `json:"width,omitempty"`
	Dash    string  `json:"dash,omitempty"`
	Layer   string  `json:"layer,omitempty"`
}

// Annotation is one marker anchored to a candle.
type Annotation struct {
	X           int64   `json:"x"` // epoch ms
	Y           float64 `json:"y"`
	Text        string  `json:"text"`
	ShowArrow   bool    `json:"showarrow"`
	ArrowHead   int     `json:"arrowhead,omitempty"`
	Ax          float64 `json:"ax"`
	Ay          float64 `json:"ay"`
	FontColor   string  `json:"fontColor,omitempty"`
	FontSize    int     `json:"fontSize,omitempty"`
	ArrowColor  string  `json:"arrowColor,omitempty"`
	Background  string  `json:"bgcolor,omitempty"`
	BorderColor string  `json:"bordercolor,omitempty"`
	BorderPad   int     `json:"borderpad,omitempty"`
	YAnchor     string  `json:"yanchor,omitempty"`
	XAnchor     string  `json:"xanchor,omitempty"`
}

// Drag modes.
const (
	DragZoom   = "zoom"
	DragSelect = "select"
)

// Layout is the axis and decoration configuration for one draw.
type Layout struct {
	DragMode      string       `json:"dragmode"`
	XRange        *[2]float64  `json:"xrange,omitempty"`
	YRange        *[2]float64  `json:"yrange,omitempty"`
	XAutorange    bool         `json:"xautorange"`
	YAutorange    bool         `json:"yautorange"`
	SecondaryAxis bool         `json:"secondaryAxis"`
	Shapes        []Shape      `json:"shapes"`
	Annotations   []Annotation `json:"annotations"`
}

// Scene is the complete renderer input for one full draw.
type Scene struct {
	Ticker string  `json:"ticker"`
	Traces []Trace `json:"traces"`
	Layout Layout  `json:"layout"`
}

// Patch updates decorations and layout without touching series data.
// Nil slices mean "leave untouched"; DragMode "" likewise.
type Patch struct {
	Shapes      []Shape      `json:"shapes,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	DragMode    string       `json:"dragmode,omitempty"`
	XRange      *[2]float64  `json:"xrange,omitempty"`
	YRange      *[2]float64  `json:"yrange,omitempty"`
}
