package meter

// StateMessage is the raw reading published by the meter bridge. Values
// come in the device's native units: activePower in W, current in mA,
// voltage in centivolts and frequency in mHz.
type StateMessage struct {
	ID            int      `json:"id"`
	ActivePower   *float64 `json:"activePower"`
	ReactivePower *float64 `json:"reactivePower"`
	ApparentPower *float64 `json:"apparentPower"`
	Current       *float64 `json:"current"`
	Voltage       *float64 `json:"voltage"`
	Frequency     *float64 `json:"frequency"`
	Ts            string   `json:"ts"`
}
