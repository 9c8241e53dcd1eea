package models

// TickerRequest switches the active ticker.
type TickerRequest struct {
	Ticker string `json:"ticker" validate:"required,min=1,max=12"`
}

// SelectionRangeRequest carries the x-axis bounds of a drag, in epoch ms.
type SelectionRangeRequest struct {
	Start int64 `json:"start" validate:"required,gt=0"`
	End   int64 `json:"end" validate:"required,gtfield=Start"`
}

// SelectionSubmitRequest labels the committed selection.
type SelectionSubmitRequest struct {
	Label int `json:"label" validate:"required,oneof=1 2 3"`
}

// StatusResponse is the aggregate state exposed on the status route.
type StatusResponse struct {
	Channels      map[string]string `json:"channels"`
	Ticker        string            `json:"ticker,omitempty"`
	Loaded        bool              `json:"loaded"`
	Selection     string            `json:"selection"`
	Progress      float64           `json:"progress"`
	TotalPatterns int               `json:"total_patterns"`
	Banner        string            `json:"banner,omitempty"`
}
