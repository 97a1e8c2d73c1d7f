package pstryk

// Wire types for the Pstryk integrations API. Numeric and boolean fields
// are pointers so a missing or null field survives decoding and can be
// treated as absent further down instead of failing the whole payload.

type priceResponse struct {
	Frames []PriceFrame `json:"frames"`
}

type PriceFrame struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	PriceGross  *float64 `json:"price_gross"`
	IsCheap     *bool    `json:"is_cheap"`
	IsExpensive *bool    `json:"is_expensive"`
}

type EnergyFrame struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	FaeUsage *float64 `json:"fae_usage"`
	Cost     *float64 `json:"cost"`
}

type EnergyResponse struct {
	Frames        []EnergyFrame `json:"frames"`
	FaeTotalUsage *float64      `json:"fae_total_usage"`
	TotalCost     *float64      `json:"total_cost"`
}
