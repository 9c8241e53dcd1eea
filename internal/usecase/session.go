package usecase

import (
	"context"
	"encoding/json"

	"Delphi/internal/domain/models"
	"Delphi/internal/domain/repository"
	"Delphi/pkg/logger"
)

// Run starts the event loop and one read loop per channel. It returns
// immediately; Stop tears everything down.
func (c *Chart) Run(ctx context.Context) {
	c.loop.Start()
	for _, ch := range []repository.ChannelStream{c.data, c.train, c.misc} {
		go c.runChannel(ctx, ch)
	}
}

// Stop stops the event loop. Channel read loops unwind when their context
// is cancelled.
func (c *Chart) Stop() {
	_ = c.data.Close()
	_ = c.train.Close()
	_ = c.misc.Close()
	c.loop.Stop()
}

// runChannel keeps one channel connected forever: connect, drain, reconnect
// after the fixed delay. Every envelope is posted onto the event loop.
func (c *Chart) runChannel(ctx context.Context, ch repository.ChannelStream) {
	name := ch.Name()
	for ctx.Err() == nil {
		if !ch.IsConnected() {
			if err := ch.Reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn("channel reconnect failed", logger.String("channel", name), logger.Error(err))
				continue
			}
		}

		c.metrics.RecordChannelState(name, true)
		c.log.Info("channel connected", logger.String("channel", name))
		c.loop.Post(func() { c.onChannelUp(name) })

		events, errs := ch.Read(ctx)
	drain:
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-events:
				if !ok {
					break drain
				}
				e := env
				c.loop.Post(func() { c.dispatch(name, e) })
			case err, ok := <-errs:
				if ok && err != nil && ctx.Err() == nil {
					c.log.Warn("channel read failed", logger.String("channel", name), logger.Error(err))
				}
				break drain
			}
		}

		c.metrics.RecordChannelState(name, false)
		_ = ch.Close()
	}
}

// onChannelUp handles connectivity edges. A fresh data connection with an
// active ticker outside a selection re-requests the snapshot so a drop in
// the middle of a session self-heals.
func (c *Chart) onChannelUp(name string) {
	if name != c.data.Name() {
		return
	}
	if c.ticker == "" || c.sel.phase != selInactive {
		return
	}
	c.requestTickerData()
	c.armDataTimeout()
}

// dispatch routes one envelope to its handler. Runs on the event loop.
func (c *Chart) dispatch(channel string, env models.Envelope) {
	switch env.Event {
	case models.EventTickerData:
		var snap models.RawSnapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			c.metrics.RecordSnapshot("invalid")
			c.log.Error("malformed ticker_data", logger.Error(err))
			return
		}
		c.applySnapshot(&snap)

	case models.EventTickerInfo:
		var info map[string]models.TickerInfo
		if err := json.Unmarshal(env.Payload, &info); err != nil {
			c.log.Warn("malformed ticker_info", logger.Error(err))
			return
		}
		for k, v := range info {
			c.tickerInfo[k] = v
		}

	case models.EventProgressUpdate:
		var p models.ProgressUpdate
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.log.Warn("malformed progress_update", logger.Error(err))
			return
		}
		c.progress = p.Progress
		if p.TotalPatterns > 0 {
			c.totalPatterns = p.TotalPatterns
		}

	case models.EventTrainComplete:
		var tc models.TrainComplete
		if err := json.Unmarshal(env.Payload, &tc); err != nil {
			c.log.Warn("malformed train_complete", logger.Error(err))
			return
		}
		c.onTrainComplete(tc)

	case models.EventMiscUpdate:
		var mu models.MiscUpdate
		if err := json.Unmarshal(env.Payload, &mu); err != nil {
			c.log.Warn("malformed misc_update", logger.Error(err))
			return
		}
		c.gainers = &mu

	case models.EventUniqueTickers:
		var list models.UniqueTickersList
		if err := json.Unmarshal(env.Payload, &list); err != nil {
			c.log.Warn("malformed unique_tickers_list", logger.Error(err))
			return
		}
		c.onUniqueTickers(&list)

	default:
		c.log.Debug("unhandled event",
			logger.String("channel", channel),
			logger.String("event", env.Event))
	}
}

// onTrainComplete surfaces the terminal training status, then resets the
// workflow after a short delay so the status is visible before the chart
// reloads.
func (c *Chart) onTrainComplete(tc models.TrainComplete) {
	switch tc.Status {
	case models.TrainStatusSuccess:
		c.log.Info("training save complete",
			logger.String("ticker", c.ticker),
			logger.Int("patterns", c.totalPatterns))
	case models.TrainStatusCancelled:
		c.log.Warn("training save cancelled", logger.String("message", tc.Message))
	default:
		c.metrics.RecordError("train")
		c.log.Error("training save failed", logger.String("message", tc.Message))
	}

	c.loop.PostDelayed(c.cfg.Chart.CompleteResetDelay, func() {
		if c.sel.phase != selSubmitting {
			return
		}
		c.exitSelection(true)
	})
}
