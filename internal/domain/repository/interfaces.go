package repository

import (
	"context"

	"Delphi/internal/domain/models"
)

// ChannelStream is one long-lived backend channel (data, train or misc).
type ChannelStream interface {
	Name() string
	Connect(ctx context.Context) error
	// Read returns envelope and error channels; the error channel yields
	// once per broken connection and Read's loops exit on ctx cancel.
	Read(ctx context.Context) (<-chan models.Envelope, <-chan error)
	Emit(event string, payload interface{}) error
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Renderer is the external chart surface. Both operations are asynchronous;
// done runs exactly once, on the event loop, with the operation's outcome.
type Renderer interface {
	FullDraw(scene *models.Scene, done func(error))
	Patch(patch *models.Patch, done func(error))
}

// SettingsStore persists user preferences.
type SettingsStore interface {
	Load() (*models.AppSettings, error)
	Save(s *models.AppSettings) error
}

// Metrics abstracts the instrumentation backend.
type Metrics interface {
	RecordChannelState(channel string, connected bool)
	RecordSnapshot(outcome string)
	RecordRecordsDropped(n int)
	RecordRenderOp(kind string)
	RecordRenderDropped(kind string)
	RecordError(kind string)
	RecordPatternsSubmitted(n int)
	RecordLastClose(ticker string, close float64)
	RecordLatency(op string, seconds float64)
}
