package models

import "encoding/json"

// Signal values carried on a candle.
const (
	SignalNone = 0
	SignalBuy  = 1
	SignalSell = 2
)

// Classification / prediction classes.
const (
	ClassNone    = 0
	ClassUp      = 1
	ClassDown    = 2
	ClassNeutral = 3
)

// Candle is one normalized OHLCV time bucket plus the server-computed
// indicator vector and labeling state.
type Candle struct {
	Timestamp int64  // epoch milliseconds
	Date      string // display date, always valid after normalization
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64

	Prediction      int
	PredictionValue float64
	Classified      int
	Classification  int
	Signals         int
	SignalChangePct float64
	SafeBuy         int
	CPPSmoothed     float64

	// MomentumPPOSm stays nil when the server sent no value; the momentum
	// overlay renders a gap there instead of a false zero.
	MomentumPPOSm *float64

	// Features holds the remaining indicator fields keyed by wire name,
	// defaulted to 0.0 when absent.
	Features map[string]float64
}

// MarshalJSON flattens the candle back into the wire shape the training
// backend expects: one object with every indicator as a top-level key.
func (c Candle) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Features)+16)
	for k, v := range c.Features {
		m[k] = v
	}
	m["timestamp"] = c.Timestamp
	m["Date"] = c.Date
	m["open"] = c.Open
	m["high"] = c.High
	m["low"] = c.Low
	m["close"] = c.Close
	m["volume"] = c.Volume
	m["prediction"] = c.Prediction
	m["prediction_values"] = c.PredictionValue
	m["classified"] = c.Classified
	m["classification"] = c.Classification
	m["signals"] = c.Signals
	m["signal_change_percentage"] = c.SignalChangePct
	m["safe_buy"] = c.SafeBuy
	m["cpp_smoothed"] = c.CPPSmoothed
	if c.MomentumPPOSm != nil {
		m["momentum_ppo_sm"] = *c.MomentumPPOSm
	} else {
		m["momentum_ppo_sm"] = nil
	}
	return json.Marshal(m)
}
