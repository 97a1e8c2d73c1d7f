package meter

import (
	"sync"
	"time"

	"github.com/pstryklab/pstryk-go/convert"
	"github.com/pstryklab/pstryk-go/types"
)

// InMemData holds the latest state message per meter sensor. The first
// sensor (id 0) is the grid connection point the display surface reads.
type InMemData struct {
	mu         sync.RWMutex
	sensors    map[int]StateMessage
	receivedAt time.Time
}

func NewInMemData() *InMemData {
	return &InMemData{sensors: make(map[int]StateMessage)}
}

func (d *InMemData) SetState(msg *StateMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sensors[msg.ID] = *msg
	d.receivedAt = time.Now()
}

func (d *InMemData) Healthy() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.sensors) == 0 {
		return false
	}
	return time.Since(d.receivedAt) < 5*time.Minute
}

// Reading converts the raw sensor 0 state into display units.
func (d *InMemData) Reading() types.MeterReading {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := d.sensors[0]
	r := types.MeterReading{ReceivedAt: d.receivedAt}
	if s.ActivePower != nil {
		r.PowerWatts = *s.ActivePower
		r.ActivePowerKW = convert.WattsToKiloWatts(*s.ActivePower)
	}
	if s.ReactivePower != nil {
		r.ReactivePowerVA = *s.ReactivePower
	}
	if s.ApparentPower != nil {
		r.ApparentPowerVA = *s.ApparentPower
	}
	if s.Current != nil {
		r.CurrentA = convert.MilliAmpsToAmps(*s.Current)
	}
	if s.Voltage != nil {
		r.VoltageV = convert.CentiVoltsToVolts(*s.Voltage)
	}
	if s.Frequency != nil {
		r.FrequencyHz = convert.MilliHertzToHertz(*s.Frequency)
	}
	return r
}
