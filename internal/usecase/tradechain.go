package usecase

import "Delphi/internal/domain/models"

// Probability bands on cpp_smoothed that drive the narration.
const (
	chainRiseLevel  = 70.0
	chainHoverLevel = 50.0
	chainFadeLevel  = 40.0

	// At most this many waypoints between buy and sell.
	chainMaxIntermediate = 4
)

// BuildTradeChain narrates the most recent buy-to-sell (or buy-to-present)
// excursion over the smoothed probability. An empty chain means no active
// position.
func BuildTradeChain(candles []models.Candle) models.TradeChain {
	buyIdx := -1
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Signals == models.SignalBuy {
			buyIdx = i
			break
		}
	}
	if buyIdx < 0 {
		return nil
	}

	chain := models.TradeChain{waypoint(models.WaypointBuy, candles[buyIdx])}
	intermediate := 0
	fadeCount := 0
	prev := candles[buyIdx].CPPSmoothed

	for i := buyIdx + 1; i < len(candles) && intermediate < chainMaxIntermediate; i++ {
		c := candles[i]
		if c.Signals == models.SignalSell {
			chain = append(chain, waypoint(models.WaypointSell, c))
			break
		}

		// Exactly one band transition per candle; later cases only apply
		// when the earlier ones did not.
		cpp := c.CPPSmoothed
		switch {
		case cpp > chainRiseLevel && prev <= chainRiseLevel:
			chain = append(chain, waypoint(models.WaypointRise, c))
			intermediate++
		case cpp >= chainHoverLevel && cpp <= chainRiseLevel &&
			(prev < chainHoverLevel || prev > chainRiseLevel):
			chain = append(chain, waypoint(models.WaypointHover, c))
			intermediate++
		case cpp < chainHoverLevel && prev >= chainHoverLevel:
			// Only a dip when the very next candle recovers.
			if i+1 < len(candles) && candles[i+1].CPPSmoothed >= chainHoverLevel {
				chain = append(chain, waypoint(models.WaypointDip, c))
				intermediate++
			}
		case cpp < chainFadeLevel && prev >= chainFadeLevel:
			// Sustained fades get narrated from the third drop onward.
			fadeCount++
			if fadeCount >= 3 {
				chain = append(chain, waypoint(models.WaypointDiminish, c))
				intermediate++
			}
		}
		prev = cpp
	}

	return chain
}

func waypoint(kind string, c models.Candle) models.Waypoint {
	return models.Waypoint{
		Type:      kind,
		CPP:       c.CPPSmoothed,
		Timestamp: c.Timestamp,
		Date:      c.Date,
	}
}
