package models

// Waypoint types, in the order they typically appear in a chain.
const (
	WaypointBuy      = "buy"
	WaypointSell     = "sell"
	WaypointRise     = "rise"
	WaypointHover    = "hover"
	WaypointDip      = "dip"
	WaypointDiminish = "diminish"
)

// Waypoint is one narrated transition of the active trade.
type Waypoint struct {
	Type      string  `json:"type"`
	CPP       float64 `json:"cpp"`
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`
}

// TradeChain narrates the most recent buy-to-sell (or buy-to-present)
// excursion. Empty means no active position.
type TradeChain []Waypoint
