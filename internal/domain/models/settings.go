package models

// ChartDefaults are the startup values for the view toggles.
type ChartDefaults struct {
	ShowSessions        bool `json:"showSessions" default:"true"`
	ShowSignals         bool `json:"showSignals" default:"true"`
	ShowPriceLine       bool `json:"showPriceLine" default:"true"`
	ShowMomentumPPO     bool `json:"showMomentumPPO" default:"true"`
	ShowClassifications bool `json:"showClassifications" default:"false"`
	ColorByPredictions  bool `json:"colorByPredictions" default:"true"`
}

// SignalOptions are the server-side signal tunables the user can adjust.
type SignalOptions struct {
	ProbThreshold       float64 `json:"probThreshold" default:"0.7" validate:"gt=0,lte=1"`
	ConfirmationCandles int     `json:"confirmationCandles" default:"1" validate:"gte=1,lte=10"`
}

// AppSettings is the persisted preference document. Stored JSON is merged
// over defaults so documents written by older versions pick up new fields.
type AppSettings struct {
	Version          int           `json:"version" default:"1" validate:"gte=1"`
	SafeBuyThreshold int           `json:"safeBuyThreshold" default:"50" validate:"gte=0,lte=100"`
	Colors           Palette       `json:"colors"`
	ChartDefaults    ChartDefaults `json:"chartDefaults"`
	SignalOptions    SignalOptions `json:"signalOptions"`
}

// DefaultPalette returns the hardcoded color defaults.
func DefaultPalette() Palette {
	return Palette{
		Up:      "#00ff00",
		Down:    "#ff0000",
		Neutral: "#d3d3d3",
		PPOLine: "#00ff00",
	}
}

// SignalSettings extracts the wire settings block sent with ticker requests.
func (s *AppSettings) SignalSettings() *SignalSettings {
	return &SignalSettings{
		SafeBuyThreshold:    s.SafeBuyThreshold,
		ProbThreshold:       s.SignalOptions.ProbThreshold,
		ConfirmationCandles: s.SignalOptions.ConfirmationCandles,
	}
}
