package coordinator

import (
	"log/slog"
	"slices"
	"time"

	"github.com/pstryklab/pstryk-go/convert"
	"github.com/pstryklab/pstryk-go/hours"
	"github.com/pstryklab/pstryk-go/pstryk"
	"github.com/pstryklab/pstryk-go/types"
)

const maxFlaggedHours = 24

// NormalizePrices converts raw price frames into the canonical record.
// It is pure: the same payload with the same clock always yields the
// same record. Malformed frames (unparsable timestamps, missing price)
// are logged and dropped, never guessed at.
func NormalizePrices(logger *slog.Logger, raw []pstryk.PriceFrame, now time.Time, loc *time.Location, decimals int) types.PriceRecord {
	frames := make([]types.PriceFrame, 0, len(raw))
	for _, rf := range raw {
		start := hours.FromIso(rf.Start)
		end := hours.FromIso(rf.End)
		if start.IsZero() || end.IsZero() || rf.PriceGross == nil {
			logger.Warn("skipping malformed price frame",
				slog.String("start", rf.Start),
				slog.String("end", rf.End),
				slog.Bool("hasPrice", rf.PriceGross != nil))
			continue
		}
		frames = append(frames, types.PriceFrame{
			Start:       start,
			End:         end,
			Hour:        start.In(loc).Hour(),
			Price:       convert.RoundHalfUp(*rf.PriceGross, decimals),
			IsCheap:     rf.IsCheap != nil && *rf.IsCheap,
			IsExpensive: rf.IsExpensive != nil && *rf.IsExpensive,
		})
	}

	slices.SortFunc(frames, func(a, b types.PriceFrame) int {
		return a.Start.Compare(b.Start)
	})
	frames = slices.CompactFunc(frames, func(a, b types.PriceFrame) bool {
		return a.Start.Equal(b.Start)
	})

	record := derivePrices(frames, now, loc)
	record.FetchedAt = now
	return record
}

// derivePrices computes the wall-clock dependent fields over an already
// normalized frame list. It runs after every fetch and again whenever a
// cached record replaces a failed one, so the current-hour lookups keep
// following the clock instead of freezing at the last successful fetch.
func derivePrices(frames []types.PriceFrame, now time.Time, loc *time.Location) types.PriceRecord {
	record := types.PriceRecord{
		Prices: frames,
	}

	localToday := dateOf(now.In(loc))
	localTomorrow := localToday.AddDate(0, 0, 1)
	nextHour := now.UTC().Truncate(time.Hour).Add(time.Hour)

	for _, f := range frames {
		// Half-open containment, a frame ending exactly now is over.
		if !now.Before(f.Start) && now.Before(f.End) {
			price := f.Price
			record.CurrentPrice = &price
			record.IsCheap = f.IsCheap
			record.IsExpensive = f.IsExpensive
		}

		// Next-hour price requires an exact frame boundary match, a
		// misaligned frame list reports the value as unavailable.
		if f.Start.Equal(nextHour) {
			price := f.Price
			record.NextHourPrice = &price
		}

		if f.Start.After(now) {
			record.HasFutureData = true
		}

		switch localDate := dateOf(f.Start.In(loc)); {
		case localDate.Equal(localToday):
			record.PricesToday = append(record.PricesToday, f)
		case localDate.Equal(localTomorrow):
			record.PricesTomorrow = append(record.PricesTomorrow, f)
		}

		if f.End.After(now) {
			if f.IsCheap && len(record.CheapHours) < maxFlaggedHours {
				record.CheapHours = append(record.CheapHours, f)
			}
			if f.IsExpensive && len(record.ExpensiveHours) < maxFlaggedHours {
				record.ExpensiveHours = append(record.ExpensiveHours, f)
			}
		}
	}

	return record
}

// NormalizeEnergy converts raw usage or cost frames into the canonical
// aggregate record. The upstream window total is used when present,
// otherwise the frame values are summed.
func NormalizeEnergy(logger *slog.Logger, raw []pstryk.EnergyFrame, total *float64, now time.Time, decimals int) types.EnergyRecord {
	frames := make([]types.EnergyFrame, 0, len(raw))
	for _, rf := range raw {
		start := hours.FromIso(rf.Start)
		end := hours.FromIso(rf.End)
		value := rf.FaeUsage
		if value == nil {
			value = rf.Cost
		}
		if start.IsZero() || end.IsZero() || value == nil {
			logger.Warn("skipping malformed energy frame",
				slog.String("start", rf.Start),
				slog.String("end", rf.End),
				slog.Bool("hasValue", value != nil))
			continue
		}
		frames = append(frames, types.EnergyFrame{
			Start: start,
			End:   end,
			Value: convert.RoundHalfUp(*value, decimals),
		})
	}

	slices.SortFunc(frames, func(a, b types.EnergyFrame) int {
		return a.Start.Compare(b.Start)
	})
	frames = slices.CompactFunc(frames, func(a, b types.EnergyFrame) bool {
		return a.Start.Equal(b.Start)
	})

	record := types.EnergyRecord{
		Frames:    frames,
		Current:   deriveEnergyCurrent(frames, now),
		FetchedAt: now,
	}

	if total != nil {
		record.Total = convert.RoundHalfUp(*total, decimals)
	} else {
		sum := 0.0
		for _, f := range frames {
			sum += f.Value
		}
		record.Total = convert.RoundHalfUp(sum, decimals)
	}

	return record
}

func deriveEnergyCurrent(frames []types.EnergyFrame, now time.Time) *float64 {
	for _, f := range frames {
		if !now.Before(f.Start) && now.Before(f.End) {
			value := f.Value
			return &value
		}
	}
	return nil
}

// rederivePrices recomputes the time-dependent fields of a cached record
// against the current clock. The cached frame window spans yesterday
// through tomorrow, so the frame covering the current hour is usually
// still in there even when the fetch that would refresh it failed.
func rederivePrices(record types.PriceRecord, now time.Time, loc *time.Location) types.PriceRecord {
	fresh := derivePrices(record.Prices, now, loc)
	fresh.FetchedAt = record.FetchedAt
	return fresh
}

func rederiveEnergy(record types.EnergyRecord, now time.Time) types.EnergyRecord {
	record.Current = deriveEnergyCurrent(record.Frames, now)
	return record
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
