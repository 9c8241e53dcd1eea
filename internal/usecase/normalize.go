package usecase

import (
	"errors"
	"fmt"

	"Delphi/internal/domain/models"
	"Delphi/pkg/logger"
	"Delphi/pkg/util"
)

var (
	// ErrEmptySnapshot means the message carried no ticker or no records.
	ErrEmptySnapshot = errors.New("snapshot carries no data")
	// ErrNoValidRecords means every record in the snapshot was dropped.
	ErrNoValidRecords = errors.New("snapshot has no valid records")
)

// ErrStaleSnapshot reports a snapshot for a ticker that is no longer active.
type ErrStaleSnapshot struct {
	Got  string
	Want string
}

func (e *ErrStaleSnapshot) Error() string {
	return fmt.Sprintf("stale snapshot for %s, active ticker is %s", e.Got, e.Want)
}

// Normalizer turns raw snapshot records into candles. Records that fail the
// structural checks are dropped individually; the snapshot as a whole is
// rejected only when empty, stale, or when nothing survives filtering.
type Normalizer struct {
	maxPoints int
	log       *logger.Logger
}

func NewNormalizer(maxPoints int, log *logger.Logger) *Normalizer {
	return &Normalizer{maxPoints: maxPoints, log: log}
}

// Normalize validates snap against the active ticker and returns the
// surviving candles plus the count of dropped records.
func (n *Normalizer) Normalize(snap *models.RawSnapshot, activeTicker string) ([]models.Candle, int, error) {
	if len(snap.Tickers) == 0 || len(snap.Data) == 0 {
		return nil, 0, ErrEmptySnapshot
	}
	if snap.Tickers[0] != activeTicker {
		return nil, 0, &ErrStaleSnapshot{Got: snap.Tickers[0], Want: activeTicker}
	}

	records := snap.Data
	if n.maxPoints > 0 && len(records) > n.maxPoints {
		records = records[len(records)-n.maxPoints:]
	}

	candles := make([]models.Candle, 0, len(records))
	dropped := 0
	var prevTS int64
	for _, rec := range records {
		c, ok := n.normalizeRecord(rec)
		if !ok {
			dropped++
			continue
		}
		if len(candles) > 0 && c.Timestamp == prevTS {
			n.log.Warn("duplicate candle timestamp",
				logger.String("ticker", activeTicker),
				logger.Int64("timestamp", c.Timestamp))
		}
		prevTS = c.Timestamp
		candles = append(candles, c)
	}

	if len(candles) == 0 {
		return nil, dropped, ErrNoValidRecords
	}
	return candles, dropped, nil
}

func (n *Normalizer) normalizeRecord(rec map[string]interface{}) (models.Candle, bool) {
	var c models.Candle

	ts, ok := util.ParseMillis(rec["timestamp"])
	if !ok {
		return c, false
	}

	open, ok1 := util.ParseFinite(rec["open"])
	high, ok2 := util.ParseFinite(rec["high"])
	low, ok3 := util.ParseFinite(rec["low"])
	cls, ok4 := util.ParseFinite(rec["close"])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return c, false
	}

	date := ""
	if s, isStr := rec["Date"].(string); isStr {
		if valid, ok := util.ValidateDate(s); ok {
			date = valid
		}
	}
	if date == "" {
		date = util.FormatMillis(ts)
	}

	c.Timestamp = ts
	c.Date = date
	c.Open = open
	c.High = high
	c.Low = low
	c.Close = cls
	if v := util.FiniteOr(rec["volume"], 0); v > 0 {
		c.Volume = int64(v)
	}

	c.Prediction = util.IntOr(rec["prediction"], 0)
	c.PredictionValue = util.FiniteOr(rec["prediction_values"], 0)
	c.Classified = util.IntOr(rec["classified"], 0)
	c.Classification = util.IntOr(rec["classification"], 0)
	c.Signals = util.IntOr(rec["signals"], 0)
	c.SignalChangePct = util.FiniteOr(rec["signal_change_percentage"], 0)
	c.SafeBuy = util.IntOr(rec["safe_buy"], 0)
	c.CPPSmoothed = util.FiniteOr(rec["cpp_smoothed"], 0)

	if v, ok := util.ParseFinite(rec["momentum_ppo_sm"]); ok {
		c.MomentumPPOSm = &v
	}

	c.Features = make(map[string]float64, len(models.TAFeatures))
	for _, name := range models.TAFeatures {
		if models.IsStructFeature(name) {
			continue
		}
		c.Features[name] = util.FiniteOr(rec[name], 0)
	}

	return c, true
}
