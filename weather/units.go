// backend/weather/units.go
package weather

import (
	"math"

	"github.com/shopspring/decimal"
)

var mmHgPerHPa = decimal.RequireFromString("0.750062")

// HPaToMMHg converts hectopascals to millimetres of mercury, rounded to 1 decimal.
func HPaToMMHg(hpa float64) float64 {
	return decimal.NewFromFloat(hpa).Mul(mmHgPerHPa).Round(1).InexactFloat64()
}

var compass = [8]string{
	"north", "north-east", "east", "south-east",
	"south", "south-west", "west", "north-west",
}

// WindDirection buckets a bearing into one of 8 compass points, 45 degrees each,
// centred on the point: round(deg/45) mod 8. Halves round to even.
func WindDirection(deg float64) string {
	i := int(math.RoundToEven(deg/45)) % 8
	if i < 0 {
		i += 8
	}
	return compass[i]
}
