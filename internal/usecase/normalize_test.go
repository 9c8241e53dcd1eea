package usecase

import (
	"errors"
	"testing"

	"Delphi/internal/domain/models"
	"Delphi/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func rawRecord(ts int64, close float64) map[string]interface{} {
	rec := map[string]interface{}{
		"timestamp": float64(ts),
		"Date":      "2024-06-03 07:35:00",
		"open":      float64(100),
		"high":      float64(102),
		"low":       float64(99),
		"close":     close,
		"volume":    float64(1000),
	}
	return rec
}

func TestNormalizeRejectsEmptySnapshot(t *testing.T) {
	n := NewNormalizer(1000, testLogger(t))
	_, _, err := n.Normalize(&models.RawSnapshot{Tickers: []string{"AAPL"}}, "AAPL")
	if !errors.Is(err, ErrEmptySnapshot) {
		t.Fatalf("expected ErrEmptySnapshot, got %v", err)
	}
}

func TestNormalizeRejectsStaleSnapshot(t *testing.T) {
	n := NewNormalizer(1000, testLogger(t))
	snap := &models.RawSnapshot{
		Tickers: []string{"MSFT"},
		Data:    []map[string]interface{}{rawRecord(1717400100000, 101.5)},
	}
	_, _, err := n.Normalize(snap, "AAPL")
	var stale *ErrStaleSnapshot
	if !errors.As(err, &stale) {
		t.Fatalf("expected stale error, got %v", err)
	}
	if stale.Got != "MSFT" || stale.Want != "AAPL" {
		t.Fatalf("unexpected stale detail: %+v", stale)
	}
}

func TestNormalizeDropsBadRecordsOnly(t *testing.T) {
	good := rawRecord(1717400100000, 101.5)
	noTimestamp := rawRecord(0, 101.5)
	delete(noTimestamp, "timestamp")
	badClose := rawRecord(1717400160000, 101.5)
	badClose["close"] = "NaN"

	snap := &models.RawSnapshot{
		Tickers: []string{"AAPL"},
		Data:    []map[string]interface{}{noTimestamp, good, badClose},
	}
	n := NewNormalizer(1000, testLogger(t))
	candles, dropped, err := n.Normalize(snap, "AAPL")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	if dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}
	if candles[0].Close != 101.5 {
		t.Fatalf("close = %v", candles[0].Close)
	}
}

func TestNormalizeAllRecordsBad(t *testing.T) {
	bad := rawRecord(1717400100000, 101.5)
	bad["open"] = nil
	snap := &models.RawSnapshot{
		Tickers: []string{"AAPL"},
		Data:    []map[string]interface{}{bad},
	}
	n := NewNormalizer(1000, testLogger(t))
	_, dropped, err := n.Normalize(snap, "AAPL")
	if !errors.Is(err, ErrNoValidRecords) {
		t.Fatalf("expected ErrNoValidRecords, got %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d", dropped)
	}
}

func TestNormalizeDateFallsBackToTimestamp(t *testing.T) {
	rec := rawRecord(1717400100000, 101.5)
	rec["Date"] = "NaN-NaN-NaN"
	snap := &models.RawSnapshot{Tickers: []string{"AAPL"}, Data: []map[string]interface{}{rec}}
	n := NewNormalizer(1000, testLogger(t))
	candles, _, err := n.Normalize(snap, "AAPL")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if candles[0].Date != "2024-06-03 07:35:00" {
		t.Fatalf("date = %q", candles[0].Date)
	}
}

func TestNormalizePreservesMissingMomentumPPO(t *testing.T) {
	withPPO := rawRecord(1717400100000, 101.5)
	withPPO["momentum_ppo_sm"] = 0.42
	withoutPPO := rawRecord(1717400160000, 101.6)

	snap := &models.RawSnapshot{
		Tickers: []string{"AAPL"},
		Data:    []map[string]interface{}{withPPO, withoutPPO},
	}
	n := NewNormalizer(1000, testLogger(t))
	candles, _, err := n.Normalize(snap, "AAPL")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if candles[0].MomentumPPOSm == nil || *candles[0].MomentumPPOSm != 0.42 {
		t.Fatalf("expected ppo 0.42, got %v", candles[0].MomentumPPOSm)
	}
	if candles[1].MomentumPPOSm != nil {
		t.Fatalf("expected nil ppo, got %v", *candles[1].MomentumPPOSm)
	}
	// absent features default to zero, not to a dropped record
	if v, ok := candles[0].Features["momentum_rsi"]; !ok || v != 0 {
		t.Fatalf("momentum_rsi = %v, %v", v, ok)
	}
}

func TestNormalizeTruncatesToMaxPoints(t *testing.T) {
	var data []map[string]interface{}
	for i := 0; i < 10; i++ {
		data = append(data, rawRecord(1717400100000+int64(i)*60000, 100+float64(i)))
	}
	snap := &models.RawSnapshot{Tickers: []string{"AAPL"}, Data: data}
	n := NewNormalizer(4, testLogger(t))
	candles, _, err := n.Normalize(snap, "AAPL")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(candles) != 4 {
		t.Fatalf("expected 4 candles, got %d", len(candles))
	}
	if candles[0].Close != 106 {
		t.Fatalf("expected most recent candles kept, first close = %v", candles[0].Close)
	}
}
