package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pstryklab/pstryk-go/cache"
	"github.com/pstryklab/pstryk-go/meter"
	"github.com/pstryklab/pstryk-go/pstryk"
	"github.com/pstryklab/pstryk-go/types"
)

const usageDecimals = 3

// Coordinator orchestrates one refresh cycle: fetch every record kind
// from the API, normalize, write through the flat-file cache, and on a
// failed fetch fall back to the last-known-good cached record so the
// read-only consumers keep seeing data.
type Coordinator struct {
	logger        *slog.Logger
	client        *pstryk.Client
	cache         *cache.Cache
	meterData     *meter.InMemData
	loc           *time.Location
	priceDecimals int
	now           func() time.Time

	mu   sync.RWMutex
	snap types.Snapshot
}

func New(logger *slog.Logger, client *pstryk.Client, c *cache.Cache, loc *time.Location, priceDecimals int) *Coordinator {
	return &Coordinator{
		logger:        logger,
		client:        client,
		cache:         c,
		loc:           loc,
		priceDecimals: priceDecimals,
		now:           time.Now,
		snap: types.Snapshot{
			Usage: make(map[types.Resolution]types.EnergyRecord),
			Cost:  make(map[types.Resolution]types.EnergyRecord),
		},
	}
}

// SetMeter attaches the optional local meter store, its latest reading
// is merged into every snapshot.
func (c *Coordinator) SetMeter(m *meter.InMemData) {
	c.meterData = m
}

// Refresh runs one full update cycle. Each record kind is fetched and
// cached independently, one failing endpoint does not spoil the others.
func (c *Coordinator) Refresh(ctx context.Context) {
	now := c.now()
	window := pstryk.DefaultWindow(now)

	ok := true

	buy := c.refreshPrices(ctx, "buy", window, now, c.client.FetchPricing, &ok)
	sell := c.refreshPrices(ctx, "sell", window, now, c.client.FetchProsumerPricing, &ok)

	usage := make(map[types.Resolution]types.EnergyRecord, len(types.Resolutions))
	cost := make(map[types.Resolution]types.EnergyRecord, len(types.Resolutions))
	for _, res := range types.Resolutions {
		usage[res] = c.refreshEnergy(ctx, "usage_"+string(res), res, window, now, usageDecimals, c.client.FetchEnergyUsage, &ok)
		cost[res] = c.refreshEnergy(ctx, "cost_"+string(res), res, window, now, c.priceDecimals, c.client.FetchEnergyCost, &ok)
	}

	c.mu.Lock()
	c.snap = types.Snapshot{
		Buy:         buy,
		Sell:        sell,
		Usage:       usage,
		Cost:        cost,
		UpdatedAt:   now,
		LastSuccess: ok,
	}
	c.mu.Unlock()

	if ok {
		c.logger.Info("refresh cycle done", slog.Int("buyFrames", len(buy.Prices)), slog.Int("sellFrames", len(sell.Prices)))
	} else {
		c.logger.Warn("refresh cycle finished with failures, serving cached data where needed")
	}
}

func (c *Coordinator) refreshPrices(
	ctx context.Context,
	kind string,
	window pstryk.Window,
	now time.Time,
	fetch func(context.Context, pstryk.Window) ([]pstryk.PriceFrame, error),
	ok *bool,
) types.PriceRecord {
	raw, err := fetch(ctx, window)
	if err != nil {
		*ok = false
		c.logger.Error("price fetch failed, falling back to cache",
			slog.String("kind", kind), slog.Any("error", err))
		return c.cachedPrices(kind, now)
	}

	record := NormalizePrices(c.logger.With(slog.String("kind", kind)), raw, now, c.loc, c.priceDecimals)
	if err := c.cache.Save(kind, record); err != nil {
		c.logger.Warn("cache write failed", slog.String("kind", kind), slog.Any("error", err))
	}
	return record
}

func (c *Coordinator) refreshEnergy(
	ctx context.Context,
	kind string,
	res types.Resolution,
	window pstryk.Window,
	now time.Time,
	decimals int,
	fetch func(context.Context, types.Resolution, pstryk.Window) (*pstryk.EnergyResponse, error),
	ok *bool,
) types.EnergyRecord {
	resp, err := fetch(ctx, res, window)
	if err != nil {
		*ok = false
		c.logger.Error("energy fetch failed, falling back to cache",
			slog.String("kind", kind), slog.Any("error", err))
		return c.cachedEnergy(kind, res, now)
	}

	total := resp.FaeTotalUsage
	if total == nil {
		total = resp.TotalCost
	}
	record := NormalizeEnergy(c.logger.With(slog.String("kind", kind)), resp.Frames, total, now, decimals)
	if err := c.cache.Save(kind, record); err != nil {
		c.logger.Warn("cache write failed", slog.String("kind", kind), slog.Any("error", err))
	}
	return record
}

// cachedPrices serves the last-known-good record with its derived
// fields recomputed against now. A record frozen at the clock of the
// last fetch would report yesterday's hour as the current price.
func (c *Coordinator) cachedPrices(kind string, now time.Time) types.PriceRecord {
	var record types.PriceRecord
	if err := c.cache.Load(kind, &record); err == nil {
		return rederivePrices(record, now, c.loc)
	}

	// No cached record either, keep whatever the previous cycle held.
	c.mu.RLock()
	defer c.mu.RUnlock()
	if kind == "sell" {
		return rederivePrices(c.snap.Sell, now, c.loc)
	}
	return rederivePrices(c.snap.Buy, now, c.loc)
}

func (c *Coordinator) cachedEnergy(kind string, res types.Resolution, now time.Time) types.EnergyRecord {
	var record types.EnergyRecord
	if err := c.cache.Load(kind, &record); err == nil {
		return rederiveEnergy(record, now)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if kind == "usage_"+string(res) {
		return rederiveEnergy(c.snap.Usage[res], now)
	}
	return rederiveEnergy(c.snap.Cost[res], now)
}

// Snapshot returns a copy of the latest merged record set, with the
// live meter reading attached when a local device is configured.
func (c *Coordinator) Snapshot() types.Snapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if c.meterData != nil && c.meterData.Healthy() {
		reading := c.meterData.Reading()
		snap.Meter = &reading
	}
	return snap
}

// LastSuccess reports whether the most recent refresh cycle completed
// without any endpoint falling back to the cache.
func (c *Coordinator) LastSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.LastSuccess
}

// HasData reports whether any usable price data is present, used to
// decide if an immediate refresh is needed at startup.
func (c *Coordinator) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snap.Buy.Prices) > 0 || len(c.snap.Sell.Prices) > 0
}
