package convert

import (
	"math"
)

// RoundHalfUp rounds to the given number of fractional digits with ties
// going toward positive infinity, so displayed monetary values never
// carry floating-point noise. -0.125 at two digits becomes -0.12.
func RoundHalfUp(number float64, decimals int) float64 {
	pow := math.Pow10(decimals)
	return math.Floor(number*pow+0.5) / pow
}

func WattsToKiloWatts(w float64) float64 {
	return RoundHalfUp(w/1e3, 3)
}

func MilliAmpsToAmps(ma float64) float64 {
	return RoundHalfUp(ma/1e3, 2)
}

func CentiVoltsToVolts(cv float64) float64 {
	return RoundHalfUp(cv/1e2, 1)
}

func MilliHertzToHertz(mhz float64) float64 {
	return RoundHalfUp(mhz/1e3, 2)
}
