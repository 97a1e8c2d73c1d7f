package coordinator

import (
	"fmt"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/pstryklab/pstryk-go/pstryk"
)

func fp(v float64) *float64 { return &v }
func bp(v bool) *bool       { return &v }

func rawFrame(start, end string, price float64) pstryk.PriceFrame {
	return pstryk.PriceFrame{Start: start, End: end, PriceGross: fp(price)}
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("loading %s: %v", name, err)
	}
	return loc
}

func TestNormalizePricesBucketingAcrossUtcBoundary(t *testing.T) {
	// Warsaw is UTC+1 in January, so a frame starting 23:00 UTC today
	// belongs to tomorrow's local calendar date.
	warsaw := mustLoc(t, "Europe/Warsaw")
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	raw := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.50),
		rawFrame("2025-01-15T22:00:00Z", "2025-01-15T23:00:00Z", 0.60),
		rawFrame("2025-01-15T23:00:00Z", "2025-01-16T00:00:00Z", 0.70),
		rawFrame("2025-01-16T10:00:00Z", "2025-01-16T11:00:00Z", 0.80),
		rawFrame("2025-01-16T23:00:00Z", "2025-01-17T00:00:00Z", 0.90),
	}

	record := NormalizePrices(slog.Default(), raw, now, warsaw, 2)

	if got := len(record.PricesToday); got != 2 {
		t.Fatalf("expected 2 frames today (10:00 and 22:00 UTC), got %d", got)
	}
	if got := len(record.PricesTomorrow); got != 2 {
		t.Fatalf("expected 2 frames tomorrow (23:00 UTC and next-day 10:00), got %d", got)
	}
	if record.PricesTomorrow[0].Price != 0.70 {
		t.Errorf("expected the 23:00 UTC frame to open tomorrow's bucket, got price %v", record.PricesTomorrow[0].Price)
	}
	// The 23:00 UTC frame starts at local midnight.
	if record.PricesTomorrow[0].Hour != 0 {
		t.Errorf("expected local hour 0 for the 23:00 UTC frame, got %d", record.PricesTomorrow[0].Hour)
	}
	// The frame starting 23:00 UTC on the 16th lands on the 17th locally
	// and belongs to neither bucket.
	total := len(record.PricesToday) + len(record.PricesTomorrow)
	if total != 4 {
		t.Errorf("expected exactly 4 bucketed frames, got %d", total)
	}
}

func TestNormalizePricesCurrentByHalfOpenContainment(t *testing.T) {
	raw := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.50),
		rawFrame("2025-01-15T11:00:00Z", "2025-01-15T12:00:00Z", 0.60),
	}

	tests := []struct {
		name string
		now  time.Time
		want *float64
	}{
		{
			name: "inside first frame",
			now:  time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
			want: fp(0.50),
		},
		{
			name: "exactly at frame start",
			now:  time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
			want: fp(0.50),
		},
		{
			name: "frame end belongs to the next frame",
			now:  time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
			want: fp(0.60),
		},
		{
			name: "after the last frame",
			now:  time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
			want: nil,
		},
		{
			name: "before the first frame",
			now:  time.Date(2025, 1, 15, 9, 59, 59, 0, time.UTC),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := NormalizePrices(slog.Default(), raw, tt.now, time.UTC, 2)
			if tt.want == nil {
				if record.CurrentPrice != nil {
					t.Fatalf("expected no current price, got %v", *record.CurrentPrice)
				}
				return
			}
			if record.CurrentPrice == nil {
				t.Fatal("expected a current price, got none")
			}
			if *record.CurrentPrice != *tt.want {
				t.Errorf("expected current price %v, got %v", *tt.want, *record.CurrentPrice)
			}
		})
	}
}

func TestNormalizePricesNextHourIsExactMatchOnly(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)

	aligned := []pstryk.PriceFrame{
		rawFrame("2025-01-15T13:00:00Z", "2025-01-15T14:00:00Z", 0.42),
	}
	record := NormalizePrices(slog.Default(), aligned, now, time.UTC, 2)
	if record.NextHourPrice == nil || *record.NextHourPrice != 0.42 {
		t.Fatalf("expected next hour price 0.42, got %v", record.NextHourPrice)
	}

	// A frame offset by 15 minutes does not count, the value is reported
	// as unavailable instead of being interpolated.
	misaligned := []pstryk.PriceFrame{
		rawFrame("2025-01-15T13:15:00Z", "2025-01-15T14:15:00Z", 0.42),
	}
	record = NormalizePrices(slog.Default(), misaligned, now, time.UTC, 2)
	if record.NextHourPrice != nil {
		t.Fatalf("expected no next hour price for misaligned frames, got %v", *record.NextHourPrice)
	}
}

func TestNormalizePricesFlagPropagation(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	raw := []pstryk.PriceFrame{
		{
			Start:      "2025-01-15T10:00:00Z",
			End:        "2025-01-15T11:00:00Z",
			PriceGross: fp(0.30),
			IsCheap:    bp(true),
		},
		{
			Start:       "2025-01-15T11:00:00Z",
			End:         "2025-01-15T12:00:00Z",
			PriceGross:  fp(1.20),
			IsExpensive: bp(true),
		},
	}

	record := NormalizePrices(slog.Default(), raw, now, time.UTC, 2)
	if !record.IsCheap || record.IsExpensive {
		t.Errorf("expected current hour cheap and not expensive, got cheap=%v expensive=%v", record.IsCheap, record.IsExpensive)
	}
	if len(record.CheapHours) != 1 || len(record.ExpensiveHours) != 1 {
		t.Errorf("expected 1 cheap and 1 expensive upcoming hour, got %d/%d", len(record.CheapHours), len(record.ExpensiveHours))
	}
}

func TestNormalizePricesFlaggedHoursCapped(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	var raw []pstryk.PriceFrame
	for i := 0; i < 30; i++ {
		start := now.Add(time.Duration(i) * time.Hour)
		raw = append(raw, pstryk.PriceFrame{
			Start:      start.Format(time.RFC3339),
			End:        start.Add(time.Hour).Format(time.RFC3339),
			PriceGross: fp(0.10),
			IsCheap:    bp(true),
		})
	}

	record := NormalizePrices(slog.Default(), raw, now, time.UTC, 2)
	if len(record.CheapHours) != maxFlaggedHours {
		t.Errorf("expected cheap hours capped at %d, got %d", maxFlaggedHours, len(record.CheapHours))
	}
}

func TestNormalizePricesHasFutureData(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)

	past := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.50),
	}
	if record := NormalizePrices(slog.Default(), past, now, time.UTC, 2); record.HasFutureData {
		t.Error("expected no future data for past-only frames")
	}

	future := append(past, rawFrame("2025-01-15T14:00:00Z", "2025-01-15T15:00:00Z", 0.50))
	if record := NormalizePrices(slog.Default(), future, now, time.UTC, 2); !record.HasFutureData {
		t.Error("expected future data")
	}
}

func TestNormalizePricesSkipsMalformedFrames(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	raw := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.50),
		{Start: "not-a-timestamp", End: "2025-01-15T12:00:00Z", PriceGross: fp(0.60)},
		{Start: "2025-01-15T12:00:00Z", End: "2025-01-15T13:00:00Z", PriceGross: nil},
	}

	record := NormalizePrices(slog.Default(), raw, now, time.UTC, 2)
	if len(record.Prices) != 1 {
		t.Fatalf("expected only the well-formed frame to survive, got %d", len(record.Prices))
	}
}

func TestNormalizePricesRounding(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	raw := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.654321),
	}

	record := NormalizePrices(slog.Default(), raw, now, time.UTC, 4)
	if record.Prices[0].Price != 0.6543 {
		t.Errorf("expected price rounded to 0.6543, got %v", record.Prices[0].Price)
	}
	if record.CurrentPrice == nil || *record.CurrentPrice != 0.6543 {
		t.Errorf("expected current price 0.6543, got %v", record.CurrentPrice)
	}
}

func TestNormalizePricesIdempotent(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)
	warsaw := mustLoc(t, "Europe/Warsaw")

	var raw []pstryk.PriceFrame
	for i := 0; i < 48; i++ {
		start := time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
		raw = append(raw, pstryk.PriceFrame{
			Start:      start.Format(time.RFC3339),
			End:        start.Add(time.Hour).Format(time.RFC3339),
			PriceGross: fp(0.1 + float64(i)*0.01),
			IsCheap:    bp(i%7 == 0),
		})
	}

	first := NormalizePrices(slog.Default(), raw, now, warsaw, 4)
	second := NormalizePrices(slog.Default(), raw, now, warsaw, 4)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected re-normalizing the same payload to yield an identical record")
	}
}

func TestNormalizePricesDedupesByStart(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	raw := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.50),
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.55),
	}

	record := NormalizePrices(slog.Default(), raw, now, time.UTC, 2)
	if len(record.Prices) != 1 {
		t.Fatalf("expected duplicate frames collapsed, got %d", len(record.Prices))
	}
}

func TestNormalizeEnergy(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	raw := []pstryk.EnergyFrame{
		{Start: "2025-01-15T09:00:00Z", End: "2025-01-15T10:00:00Z", FaeUsage: fp(1.111)},
		{Start: "2025-01-15T10:00:00Z", End: "2025-01-15T11:00:00Z", FaeUsage: fp(2.222)},
		{Start: "bad", End: "2025-01-15T12:00:00Z", FaeUsage: fp(9.9)},
	}

	record := NormalizeEnergy(slog.Default(), raw, nil, now, 3)
	if len(record.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(record.Frames))
	}
	if record.Current == nil || *record.Current != 2.222 {
		t.Errorf("expected current value 2.222, got %v", record.Current)
	}
	if record.Total != 3.333 {
		t.Errorf("expected summed total 3.333, got %v", record.Total)
	}
}

func TestNormalizeEnergyUsesUpstreamTotal(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	raw := []pstryk.EnergyFrame{
		{Start: "2025-01-15T09:00:00Z", End: "2025-01-15T10:00:00Z", Cost: fp(0.75)},
	}

	record := NormalizeEnergy(slog.Default(), raw, fp(42.4242), now, 2)
	if record.Total != 42.42 {
		t.Errorf("expected upstream total rounded to 42.42, got %v", record.Total)
	}
}

func ExampleNormalizePrices() {
	raw := []pstryk.PriceFrame{
		rawFrame("2025-01-15T10:00:00Z", "2025-01-15T11:00:00Z", 0.654321),
	}
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	record := NormalizePrices(slog.Default(), raw, now, time.UTC, 2)
	fmt.Println(*record.CurrentPrice)
	// Output: 0.65
}
