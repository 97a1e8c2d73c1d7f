package types

import (
	"time"
)

// PriceFrame is one hourly price slot as delivered by the upstream API,
// bounded by its start and end timestamps. The cheap/expensive flags are
// passed through from the API unchanged.
type PriceFrame struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Hour        int       `json:"hour"` // hour of day in the display timezone
	Price       float64   `json:"price"`
	IsCheap     bool      `json:"is_cheap"`
	IsExpensive bool      `json:"is_expensive"`
}

// PriceRecord is the normalized shape served to display consumers,
// one per pricing direction (buy/sell).
type PriceRecord struct {
	Prices []PriceFrame `json:"prices"`

	// CurrentPrice is the price of the frame containing now, nil when no
	// frame covers the current hour. NextHourPrice requires an exact frame
	// start match against the next top of the hour, never an interpolation.
	CurrentPrice  *float64 `json:"current_price"`
	NextHourPrice *float64 `json:"next_hour_price"`

	IsCheap       bool `json:"is_cheap"`
	IsExpensive   bool `json:"is_expensive"`
	HasFutureData bool `json:"has_future_data"`

	PricesToday    []PriceFrame `json:"prices_today"`
	PricesTomorrow []PriceFrame `json:"prices_tomorrow"`
	CheapHours     []PriceFrame `json:"cheap_hours"`
	ExpensiveHours []PriceFrame `json:"expensive_hours"`

	FetchedAt time.Time `json:"fetched_at"`
}

// EnergyFrame is one usage or cost slot (kWh or PLN depending on the record).
type EnergyFrame struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value float64   `json:"value"`
}

// EnergyRecord aggregates usage or cost frames for one resolution.
type EnergyRecord struct {
	Frames    []EnergyFrame `json:"frames"`
	Current   *float64      `json:"current"` // frame containing now, nil when absent
	Total     float64       `json:"total"`   // sum over the requested window
	FetchedAt time.Time     `json:"fetched_at"`
}

type Resolution string

const (
	ResolutionHour  Resolution = "hour"
	ResolutionDay   Resolution = "day"
	ResolutionMonth Resolution = "month"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionHour, ResolutionDay, ResolutionMonth:
		return true
	}
	return false
}

var Resolutions = []Resolution{ResolutionHour, ResolutionDay, ResolutionMonth}

// MeterReading is the latest state reported by the local meter device.
type MeterReading struct {
	ActivePowerKW   float64   `json:"active_power_kw"`
	PowerWatts      float64   `json:"power_watts"`
	ReactivePowerVA float64   `json:"reactive_power_var"`
	ApparentPowerVA float64   `json:"apparent_power_va"`
	CurrentA        float64   `json:"current_a"`
	VoltageV        float64   `json:"voltage_v"`
	FrequencyHz     float64   `json:"frequency_hz"`
	ReceivedAt      time.Time `json:"received_at"`
}

// Snapshot is the merged record set exposed by the coordinator.
type Snapshot struct {
	Buy   PriceRecord                 `json:"buy"`
	Sell  PriceRecord                 `json:"sell"`
	Usage map[Resolution]EnergyRecord `json:"usage"`
	Cost  map[Resolution]EnergyRecord `json:"cost"`
	Meter *MeterReading               `json:"meter,omitempty"`

	UpdatedAt   time.Time `json:"updated_at"`
	LastSuccess bool      `json:"last_success"`
}
