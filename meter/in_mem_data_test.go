package meter

import (
	"testing"
)

func f(v float64) *float64 { return &v }

func TestInMemDataReading(t *testing.T) {
	d := NewInMemData()
	d.SetState(&StateMessage{
		ID:            0,
		ActivePower:   f(1234),
		ReactivePower: f(55),
		ApparentPower: f(1300),
		Current:       f(5432),
		Voltage:       f(24534),
		Frequency:     f(49970),
	})

	r := d.Reading()
	if r.ActivePowerKW != 1.234 {
		t.Errorf("expected 1.234 kW, got %v", r.ActivePowerKW)
	}
	if r.PowerWatts != 1234 {
		t.Errorf("expected raw 1234 W, got %v", r.PowerWatts)
	}
	if r.CurrentA != 5.43 {
		t.Errorf("expected 5.43 A, got %v", r.CurrentA)
	}
	if r.VoltageV != 245.3 {
		t.Errorf("expected 245.3 V, got %v", r.VoltageV)
	}
	if r.FrequencyHz != 49.97 {
		t.Errorf("expected 49.97 Hz, got %v", r.FrequencyHz)
	}
	if r.ReceivedAt.IsZero() {
		t.Error("expected a received timestamp")
	}
}

func TestInMemDataHealthy(t *testing.T) {
	d := NewInMemData()
	if d.Healthy() {
		t.Error("expected empty store to be unhealthy")
	}

	d.SetState(&StateMessage{ID: 0, ActivePower: f(100)})
	if !d.Healthy() {
		t.Error("expected store with a fresh reading to be healthy")
	}
}

func TestInMemDataMissingFields(t *testing.T) {
	d := NewInMemData()
	d.SetState(&StateMessage{ID: 0, ActivePower: f(500)})

	r := d.Reading()
	if r.ActivePowerKW != 0.5 {
		t.Errorf("expected 0.5 kW, got %v", r.ActivePowerKW)
	}
	// Absent fields stay at zero instead of failing the reading.
	if r.VoltageV != 0 || r.FrequencyHz != 0 {
		t.Errorf("expected absent fields to be zero, got %+v", r)
	}
}
