// backend/stats/conditions.go
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gewnthar/lottometeo/backend/models"
)

const unknownBand = "unknown"

var weatherCategories = []struct {
	name     string
	keywords []string
}{
	{"clear", []string{"ясно", "солнечно", "малооблачно", "clear", "sun"}},
	{"overcast", []string{"пасмурно", "облачно", "тучи", "overcast", "cloud"}},
	{"rain", []string{"дождь", "ливень", "морось", "rain", "drizzle", "shower"}},
	{"snow", []string{"снег", "метель", "snow", "sleet"}},
}

type band struct {
	name   string
	lo, hi float64
}

var temperatureBands = []band{
	{"very_cold", math.Inf(-1), -10},
	{"cold", -10, 0},
	{"cool", 0, 10},
	{"comfortable", 10, 20},
	{"warm", 20, 30},
	{"hot", 30, math.Inf(1)},
}

// pressureBands are in mmHg.
var pressureBands = []band{
	{"very_low", math.Inf(-1), 720},
	{"low", 720, 740},
	{"normal", 740, 760},
	{"high", 760, 780},
	{"very_high", 780, math.Inf(1)},
}

// WeatherCategory groups a free-text description into clear, overcast, rain, snow or other.
func WeatherCategory(description string) string {
	d := strings.ToLower(description)
	for _, c := range weatherCategories {
		for _, k := range c.keywords {
			if strings.Contains(d, k) {
				return c.name
			}
		}
	}
	return "other"
}

func bandOf(v float64, bands []band) string {
	for _, b := range bands {
		if v >= b.lo && v < b.hi {
			return b.name
		}
	}
	return unknownBand
}

// Conditions breaks the draws carrying a weather snapshot into buckets keyed by
// weather category, temperature band and pressure band, and reports how often each
// number appeared in the bucket's draws. Buckets are ordered by key.
func Conditions(draws []models.DrawRecord) ([]models.ConditionBucket, error) {
	type acc struct {
		bucket models.ConditionBucket
		counts [models.MaxNumber + 1]int
	}
	groups := make(map[string]*acc)

	for _, d := range draws {
		if !d.HasWeather() {
			continue
		}
		w := WeatherCategory(*d.WeatherDescription)
		t := bandOf(*d.Temperature, temperatureBands)
		p := unknownBand
		if d.Pressure != nil {
			p = bandOf(*d.Pressure, pressureBands)
		}
		key := fmt.Sprintf("%s_%s_%s", w, t, p)

		g, ok := groups[key]
		if !ok {
			g = &acc{bucket: models.ConditionBucket{Key: key, Weather: w, Temperature: t, Pressure: p}}
			groups[key] = g
		}
		g.bucket.Draws++
		for _, n := range d.Numbers() {
			if n >= models.MinNumber && n <= models.MaxNumber {
				g.counts[n]++
			}
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no draws carry a weather snapshot", models.ErrNoData)
	}

	out := make([]models.ConditionBucket, 0, len(groups))
	for _, g := range groups {
		b := g.bucket
		b.Numbers = make([]models.NumberPercent, 0, poolSize)
		for n := models.MinNumber; n <= models.MaxNumber; n++ {
			b.Numbers = append(b.Numbers, models.NumberPercent{
				Number:  n,
				Count:   g.counts[n],
				Percent: round2(float64(g.counts[n]) / float64(b.Draws) * 100),
			})
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
