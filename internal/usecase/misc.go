package usecase

import (
	"context"
	"errors"

	"Delphi/internal/domain/models"
	"Delphi/pkg/cache"
	"Delphi/pkg/logger"
)

// The redis backend namespaces keys itself, so no instance prefix here.
var cacheKeyUniqueTickers = cache.GenerateKey("tickers", "unique")

// Gainers returns the latest session gainer tables. Empty lists before the
// first misc_update arrives.
func (c *Chart) Gainers() (*models.MiscUpdate, error) {
	out := &models.MiscUpdate{
		Premarket:   []models.Gainer{},
		Normal:      []models.Gainer{},
		Aftermarket: []models.Gainer{},
	}
	err := c.run(func() {
		if c.gainers == nil {
			return
		}
		if c.gainers.Premarket != nil {
			out.Premarket = c.gainers.Premarket
		}
		if c.gainers.Normal != nil {
			out.Normal = c.gainers.Normal
		}
		if c.gainers.Aftermarket != nil {
			out.Aftermarket = c.gainers.Aftermarket
		}
		out.Report = c.gainers.Report
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TickerInfo returns the cached per-ticker metadata block, if any.
func (c *Chart) TickerInfo(ticker string) (*models.TickerInfo, error) {
	var (
		out   models.TickerInfo
		found bool
	)
	err := c.run(func() {
		out, found = c.tickerInfo[ticker]
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// UniqueTickers serves the classified-tickers listing. Hits the cache first;
// a miss fans a single request out to the misc channel and every concurrent
// caller waits on the same response.
func (c *Chart) UniqueTickers(ctx context.Context) (*models.UniqueTickersList, error) {
	var cached models.UniqueTickersList
	if err := c.cache.Get(ctx, cacheKeyUniqueTickers, &cached); err == nil {
		return &cached, nil
	}

	ch := make(chan *models.UniqueTickersList, 1)
	var emitErr error
	err := c.run(func() {
		c.pendingUnique = append(c.pendingUnique, ch)
		if len(c.pendingUnique) > 1 {
			return // request already in flight
		}
		if err := c.misc.Emit(models.EventRequestUniqueTickers, nil); err != nil {
			c.metrics.RecordError("emit")
			c.pendingUnique = nil
			emitErr = err
		}
	})
	if err != nil {
		return nil, err
	}
	if emitErr != nil {
		return nil, emitErr
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case list := <-ch:
		if list.Error != "" {
			return nil, errors.New(list.Error)
		}
		return list, nil
	}
}

// onUniqueTickers caches the listing and releases every waiter.
func (c *Chart) onUniqueTickers(list *models.UniqueTickersList) {
	if list.Error == "" {
		if err := c.cache.Set(context.Background(), cacheKeyUniqueTickers, list, c.cfg.Cache.TTL); err != nil {
			c.log.Warn("unique tickers cache write failed", logger.Error(err))
		}
	}
	for _, ch := range c.pendingUnique {
		select {
		case ch <- list:
		default:
		}
	}
	c.pendingUnique = nil
}
