package models

// Palette holds the four user-configurable chart colors.
type Palette struct {
	Up      string `json:"up"`
	Down    string `json:"down"`
	Neutral string `json:"neutral"`
	PPOLine string `json:"ppoLine"`
}

// Viewport is a remembered axis range pair. A nil range means autorange on
// the next full draw.
type Viewport struct {
	XRange *[2]float64 `json:"xRange,omitempty"` // epoch ms bounds
	YRange *[2]float64 `json:"yRange,omitempty"` // price bounds
}

// Clear drops both ranges so the next draw autoranges.
func (v *Viewport) Clear() {
	v.XRange = nil
	v.YRange = nil
}

// ViewState is the mutable display state that must survive re-renders. It
// is created once at startup from persisted settings and outlives any
// single ticker's data.
type ViewState struct {
	ShowSignals         bool
	ShowPriceLine       bool
	ShowMomentumPPO     bool
	ShowSessions        bool
	ShowClassifications bool
	ColorByPrediction   bool

	Palette  Palette
	Viewport Viewport

	// Loaded reports whether valid data is currently on screen.
	Loaded bool
}

// NewViewState builds view state from persisted settings.
func NewViewState(s *AppSettings) *ViewState {
	return &ViewState{
		ShowSignals:         s.ChartDefaults.ShowSignals,
		ShowPriceLine:       s.ChartDefaults.ShowPriceLine,
		ShowMomentumPPO:     s.ChartDefaults.ShowMomentumPPO,
		ShowSessions:        s.ChartDefaults.ShowSessions,
		ShowClassifications: s.ChartDefaults.ShowClassifications,
		ColorByPrediction:   s.ChartDefaults.ColorByPredictions,
		Palette:             s.Colors,
	}
}

// Toggle flips the named toggle and returns (new value, true), or false for
// an unknown name.
func (v *ViewState) Toggle(name string) (bool, bool) {
	switch name {
	case "signals":
		v.ShowSignals = !v.ShowSignals
		return v.ShowSignals, true
	case "priceline":
		v.ShowPriceLine = !v.ShowPriceLine
		return v.ShowPriceLine, true
	case "momentum":
		v.ShowMomentumPPO = !v.ShowMomentumPPO
		return v.ShowMomentumPPO, true
	case "sessions":
		v.ShowSessions = !v.ShowSessions
		return v.ShowSessions, true
	case "classifications":
		v.ShowClassifications = !v.ShowClassifications
		return v.ShowClassifications, true
	case "colorbyprediction":
		v.ColorByPrediction = !v.ColorByPrediction
		return v.ColorByPrediction, true
	}
	return false, false
}
