package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pstryklab/pstryk-go/types"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(slog.Default(), filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return c
}

func TestSaveLoadRoundtrip(t *testing.T) {
	c := newTestCache(t)

	price := 0.65
	record := types.PriceRecord{
		Prices: []types.PriceFrame{
			{
				Start:   time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
				End:     time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
				Hour:    11,
				Price:   0.65,
				IsCheap: true,
			},
		},
		CurrentPrice:  &price,
		HasFutureData: true,
		FetchedAt:     time.Date(2025, 1, 15, 10, 5, 0, 0, time.UTC),
	}

	if err := c.Save("buy", record); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	var loaded types.PriceRecord
	if err := c.Load("buy", &loaded); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if len(loaded.Prices) != 1 || !loaded.Prices[0].Start.Equal(record.Prices[0].Start) {
		t.Errorf("loaded frames differ: %+v", loaded.Prices)
	}
	if loaded.CurrentPrice == nil || *loaded.CurrentPrice != price {
		t.Errorf("expected current price %v, got %v", price, loaded.CurrentPrice)
	}
	if !loaded.HasFutureData {
		t.Error("expected has_future_data to survive the roundtrip")
	}
	if !loaded.FetchedAt.Equal(record.FetchedAt) {
		t.Errorf("expected fetched_at %v, got %v", record.FetchedAt, loaded.FetchedAt)
	}
}

func TestLoadMissingRecord(t *testing.T) {
	c := newTestCache(t)

	var out types.PriceRecord
	if err := c.Load("sell", &out); err == nil {
		t.Fatal("Load() expected an error for a missing record")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(slog.Default(), dir)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	if err := c.Save("usage_hour", types.EnergyRecord{Total: 1.5}); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "usage_hour.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only usage_hour.json, got %v", names)
	}
}
