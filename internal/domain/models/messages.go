package models

import "encoding/json"

// Channel event names.
const (
	EventTickerData           = "ticker_data"
	EventTickerInfo           = "ticker_info"
	EventRequestTickerData    = "request_ticker_data"
	EventSavePatterns         = "save_patterns"
	EventCancelSave           = "cancel_save"
	EventProgressUpdate       = "progress_update"
	EventTrainComplete        = "train_complete"
	EventMiscUpdate           = "misc_update"
	EventUniqueTickers        = "unique_tickers_list"
	EventRequestUniqueTickers = "request_unique_tickers"
)

// Envelope is one frame on a backend channel.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RawSnapshot is the wire shape of a ticker_data message. Records stay
// untyped until the normalizer decides what survives.
type RawSnapshot struct {
	Tickers    []string                 `json:"tickers"`
	Data       []map[string]interface{} `json:"data"`
	TickerInfo map[string]TickerInfo    `json:"ticker_info"`
}

// TickerInfo is the per-ticker metadata block attached to snapshots.
type TickerInfo struct {
	Ticker        string   `json:"ticker,omitempty"`
	LongName      string   `json:"longName,omitempty"`
	ShortName     string   `json:"shortName,omitempty"`
	Sector        string   `json:"sector,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	Country       string   `json:"country,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`
	QuoteType     string   `json:"quoteType,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Bid           *float64 `json:"bid,omitempty"`
	Ask           *float64 `json:"ask,omitempty"`
	BidSize       *int64   `json:"bidSize,omitempty"`
	AskSize       *int64   `json:"askSize,omitempty"`
	PreviousClose *float64 `json:"previousClose,omitempty"`
	Open          *float64 `json:"open,omitempty"`
	DayHigh       *float64 `json:"dayHigh,omitempty"`
	DayLow        *float64 `json:"dayLow,omitempty"`
	AverageVolume *int64   `json:"averageVolume,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
}

// SignalSettings are the tunables forwarded with a ticker request.
type SignalSettings struct {
	SafeBuyThreshold    int     `json:"safeBuyThreshold"`
	ProbThreshold       float64 `json:"probThreshold"`
	ConfirmationCandles int     `json:"confirmationCandles"`
}

// TickerDataRequest asks the data channel for the current snapshot.
type TickerDataRequest struct {
	Ticker   string          `json:"ticker"`
	Settings *SignalSettings `json:"settings,omitempty"`
}

// SavePatternsRequest is one labeled training batch.
type SavePatternsRequest struct {
	Ticker   string     `json:"ticker"`
	Patterns [][]Candle `json:"patterns"`
	Labels   []int      `json:"labels"`
}

// ProgressUpdate reports server-side save progress.
type ProgressUpdate struct {
	Progress      float64 `json:"progress"`
	TotalPatterns int     `json:"total_patterns"`
}

// Train completion statuses.
const (
	TrainStatusSuccess   = "success"
	TrainStatusCancelled = "cancelled"
	TrainStatusFailed    = "failed"
)

// TrainComplete is the terminal message for one training submission.
type TrainComplete struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Gainer is one row of a session gainers table.
type Gainer struct {
	Ticker           string   `json:"ticker"`
	Name             string   `json:"name,omitempty"`
	ChangePercentage *float64 `json:"change_percentage,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	Volume           *int64   `json:"volume,omitempty"`
}

// TrainingReport describes the classifier's last training run.
type TrainingReport struct {
	TrainingDatetime        string  `json:"training_datetime"`
	Accuracy                float64 `json:"accuracy"`
	TrainingDurationSeconds float64 `json:"training_duration_seconds"`
}

// ClassificationReport summarizes the stored training corpus.
type ClassificationReport struct {
	TotalClassifications int64              `json:"total_classifications"`
	TotalSize            string             `json:"total_size"`
	UniqueTickers        int64              `json:"unique_tickers"`
	ClassCounts          map[string]int64   `json:"class_counts"`
	ClassPercentages     map[string]float64 `json:"class_percentages"`
	TrainingReport       *TrainingReport    `json:"training_report,omitempty"`
}

// MiscUpdate carries gainer tables and the optional corpus report.
type MiscUpdate struct {
	Premarket   []Gainer              `json:"premarket"`
	Normal      []Gainer              `json:"normal"`
	Aftermarket []Gainer              `json:"aftermarket"`
	Report      *ClassificationReport `json:"report,omitempty"`
}

// DateCount is classifications-per-day for one ticker.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UniqueTicker groups classification dates under one ticker.
type UniqueTicker struct {
	Ticker string      `json:"ticker"`
	Dates  []DateCount `json:"dates"`
}

// UniqueTickersList is the response to request_unique_tickers.
type UniqueTickersList struct {
	Tickers []UniqueTicker `json:"tickers,omitempty"`
	Error   string         `json:"error,omitempty"`
}
