package di

import (
	"fmt"
	"time"

	"Delphi/internal/domain/repository"
	"Delphi/internal/handler/api"
	mid "Delphi/internal/middleware"
	"Delphi/internal/service/backend"
	"Delphi/internal/service/renderer"
	"Delphi/internal/service/settings"
	"Delphi/internal/usecase"
	"Delphi/pkg/cache"
	"Delphi/pkg/config"
	xhttp "Delphi/pkg/http"
	applogger "Delphi/pkg/logger"
	"Delphi/pkg/metrics"
	"Delphi/pkg/server"
)

// Channels bundles the three backend namespaces so wire can tell them apart.
type Channels struct {
	Data  repository.ChannelStream
	Train repository.ChannelStream
	Misc  repository.ChannelStream
}

// ProvideLogger builds the application logger with the banner collector
// attached so recent warnings feed the status surface.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(applogger.NewBannerCollector(64, 10*time.Minute))
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideEventLoop creates the single orchestration loop.
func ProvideEventLoop() *mid.EventLoop {
	return mid.NewEventLoop()
}

// ProvideCache selects the cache backend from config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Type == "redis" {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix("delphi"),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideSettingsStore creates the persisted settings store.
func ProvideSettingsStore(cfg *config.Config) repository.SettingsStore {
	return settings.NewFileStore(cfg.Settings.Path)
}

// ProvideChannels creates the three backend WebSocket channels.
func ProvideChannels(cfg *config.Config) Channels {
	b := cfg.Backend
	return Channels{
		Data:  backend.New("data", b.BaseURL+b.DataPath, b.ReconnectDelay, b.PingInterval),
		Train: backend.New("train", b.BaseURL+b.TrainPath, b.ReconnectDelay, b.PingInterval),
		Misc:  backend.New("misc", b.BaseURL+b.MiscPath, b.ReconnectDelay, b.PingInterval),
	}
}

// ProvideBridge creates the renderer peer bridge.
func ProvideBridge(log *applogger.Logger, loop *mid.EventLoop) *renderer.Bridge {
	return renderer.NewBridge(log, loop)
}

// ProvideChart builds the orchestrator.
func ProvideChart(
	cfg *config.Config,
	log *applogger.Logger,
	rec *metrics.Recorder,
	bridge *renderer.Bridge,
	loop *mid.EventLoop,
	store repository.SettingsStore,
	cacheSvc cache.Service,
	channels Channels,
) (*usecase.Chart, error) {
	return usecase.NewChart(cfg, log, rec, bridge, loop, store, cacheSvc,
		channels.Data, channels.Train, channels.Misc)
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(chart *usecase.Chart, bridge *renderer.Bridge, log *applogger.Logger) xhttp.Handler {
	return api.NewHandler(chart, bridge, log)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	chart *usecase.Chart,
	bridge *renderer.Bridge,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, chart, bridge, handler)
}
