package usecase

import (
	"testing"

	"Delphi/internal/domain/models"
)

func chainCandle(i int, cpp float64, signal int) models.Candle {
	return models.Candle{
		Timestamp:   1717400100000 + int64(i)*60000,
		Date:        "2024-06-03 07:35:00",
		CPPSmoothed: cpp,
		Signals:     signal,
	}
}

func chainTypes(chain models.TradeChain) []string {
	out := make([]string, len(chain))
	for i, w := range chain {
		out[i] = w.Type
	}
	return out
}

func sameTypes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestTradeChainNoBuySignal(t *testing.T) {
	candles := []models.Candle{
		chainCandle(0, 30, models.SignalNone),
		chainCandle(1, 40, models.SignalNone),
	}
	if chain := BuildTradeChain(candles); len(chain) != 0 {
		t.Fatalf("expected empty chain, got %v", chainTypes(chain))
	}
}

func TestTradeChainBuyThenSell(t *testing.T) {
	candles := []models.Candle{
		chainCandle(0, 55, models.SignalBuy),
		chainCandle(1, 60, models.SignalNone),
		chainCandle(2, 58, models.SignalSell),
	}
	chain := BuildTradeChain(candles)
	want := []string{models.WaypointBuy, models.WaypointSell}
	if !sameTypes(chainTypes(chain), want) {
		t.Fatalf("chain = %v, want %v", chainTypes(chain), want)
	}
	if chain[0].CPP != 55 || chain[1].CPP != 58 {
		t.Fatalf("waypoint probabilities: %+v", chain)
	}
}

func TestTradeChainRiseAndHover(t *testing.T) {
	candles := []models.Candle{
		chainCandle(0, 55, models.SignalBuy),
		chainCandle(1, 75, models.SignalNone), // crosses above 70 -> rise
		chainCandle(2, 78, models.SignalNone),
		chainCandle(3, 65, models.SignalNone), // re-enters [50,70] -> hover
		chainCandle(4, 64, models.SignalNone),
	}
	got := chainTypes(BuildTradeChain(candles))
	want := []string{models.WaypointBuy, models.WaypointRise, models.WaypointHover}
	if !sameTypes(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}

func TestTradeChainDipNeedsNextCandleRecovery(t *testing.T) {
	recovering := []models.Candle{
		chainCandle(0, 60, models.SignalBuy),
		chainCandle(1, 45, models.SignalNone), // below 50, next candle back above
		chainCandle(2, 55, models.SignalNone),
	}
	got := chainTypes(BuildTradeChain(recovering))
	if len(got) < 2 || got[1] != models.WaypointDip {
		t.Fatalf("chain = %v, want dip second", got)
	}

	stuck := []models.Candle{
		chainCandle(0, 60, models.SignalBuy),
		chainCandle(1, 45, models.SignalNone),
		chainCandle(2, 44, models.SignalNone), // no recovery
	}
	for _, typ := range chainTypes(BuildTradeChain(stuck)) {
		if typ == models.WaypointDip {
			t.Fatalf("dip emitted without recovery: %v", chainTypes(BuildTradeChain(stuck)))
		}
	}
}

func TestTradeChainDipNeedsCrossingFromAbove(t *testing.T) {
	// Sustained sub-50 stretch before the recovery: the candle at 45
	// with a 45 predecessor never crossed down, so no dip. The recovery
	// itself re-enters the band from below and narrates as hover.
	candles := []models.Candle{
		chainCandle(0, 60, models.SignalBuy),
		chainCandle(1, 45, models.SignalNone), // crossing, but next candle stays low
		chainCandle(2, 45, models.SignalNone),
		chainCandle(3, 55, models.SignalNone),
	}
	got := chainTypes(BuildTradeChain(candles))
	want := []string{models.WaypointBuy, models.WaypointHover}
	if !sameTypes(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}

func TestTradeChainDiminishFromThirdFade(t *testing.T) {
	// Drops below 40 from the 40-50 band; the first two stay silent.
	candles := []models.Candle{
		chainCandle(0, 45, models.SignalBuy),
		chainCandle(1, 35, models.SignalNone), // fade 1
		chainCandle(2, 45, models.SignalNone),
		chainCandle(3, 35, models.SignalNone), // fade 2
		chainCandle(4, 45, models.SignalNone),
		chainCandle(5, 35, models.SignalNone), // fade 3 -> diminish
		chainCandle(6, 45, models.SignalNone),
		chainCandle(7, 35, models.SignalNone), // fade 4 -> diminish again
	}
	got := chainTypes(BuildTradeChain(candles))
	want := []string{models.WaypointBuy, models.WaypointDiminish, models.WaypointDiminish}
	if !sameTypes(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}

func TestTradeChainOneWaypointPerCandle(t *testing.T) {
	// A 60->35 drop crosses both 50 and 40 but narrates only through the
	// dip branch; the fade counter must not also advance.
	candles := []models.Candle{
		chainCandle(0, 60, models.SignalBuy),
		chainCandle(1, 35, models.SignalNone), // dip, recovers next candle
		chainCandle(2, 55, models.SignalNone), // hover on re-entry
	}
	got := chainTypes(BuildTradeChain(candles))
	want := []string{models.WaypointBuy, models.WaypointDip, models.WaypointHover}
	if !sameTypes(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}

func TestTradeChainCapsIntermediateWaypoints(t *testing.T) {
	candles := []models.Candle{chainCandle(0, 60, models.SignalBuy)}
	// alternate across the 70 line forever: every crossing qualifies
	for i := 1; i <= 20; i++ {
		cpp := 65.0
		if i%2 == 1 {
			cpp = 75.0
		}
		candles = append(candles, chainCandle(i, cpp, models.SignalNone))
	}
	chain := BuildTradeChain(candles)
	if len(chain) > 1+chainMaxIntermediate {
		t.Fatalf("chain too long: %v", chainTypes(chain))
	}
}

func TestTradeChainUsesMostRecentBuy(t *testing.T) {
	candles := []models.Candle{
		chainCandle(0, 55, models.SignalBuy),
		chainCandle(1, 58, models.SignalSell),
		chainCandle(2, 52, models.SignalBuy),
		chainCandle(3, 75, models.SignalNone),
	}
	chain := BuildTradeChain(candles)
	if chain[0].Timestamp != candles[2].Timestamp {
		t.Fatalf("chain anchored at %d, want %d", chain[0].Timestamp, candles[2].Timestamp)
	}
	got := chainTypes(chain)
	want := []string{models.WaypointBuy, models.WaypointRise}
	if !sameTypes(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}
