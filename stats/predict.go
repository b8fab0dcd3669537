// backend/stats/predict.go
package stats

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gewnthar/lottometeo/backend/models"
	"github.com/gewnthar/lottometeo/backend/utils"
)

const (
	minProbability = 20
	maxProbability = 95
	minConfidence  = 0.3
	maxConfidence  = 0.9
)

// Predictor produces weather-filtered number recommendations. The output is a
// frequency heuristic, not a forecast.
type Predictor struct {
	mu  sync.Mutex
	rng *rand.Rand
	loc *time.Location
}

// NewPredictor uses rng to pad short fields and loc to turn observation timestamps
// into calendar days.
func NewPredictor(rng *rand.Rand, loc *time.Location) *Predictor {
	if loc == nil {
		loc = time.UTC
	}
	return &Predictor{rng: rng, loc: loc}
}

// Predict keeps the draws that share a calendar day with at least one observation
// matching filter, then recommends the 4 most frequent numbers per field.
// An empty match returns HasData=false and an error wrapping models.ErrNoData.
func (p *Predictor) Predict(draws []models.DrawRecord, observations []models.WeatherObservation, filter models.PredictionFilter) (models.Prediction, error) {
	matched := MatchDraws(draws, observations, filter, p.loc)

	pred := models.Prediction{
		MatchedDraws: len(matched),
		Field1:       []models.PredictedNumber{},
		Field2:       []models.PredictedNumber{},
		Filter:       filter,
	}
	if len(matched) == 0 {
		pred.Message = "no draws match the weather filter"
		return pred, fmt.Errorf("%w: no draws match the weather filter", models.ErrNoData)
	}

	var counts1, counts2, observed [models.MaxNumber + 1]int
	for _, d := range matched {
		for _, n := range d.Field1 {
			if n >= models.MinNumber && n <= models.MaxNumber {
				counts1[n]++
				observed[n]++
			}
		}
		for _, n := range d.Field2 {
			if n >= models.MinNumber && n <= models.MaxNumber {
				counts2[n]++
				observed[n]++
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pred.HasData = true
	pred.Field1 = p.pick(counts1, observed, len(matched))
	pred.Field2 = p.pick(counts2, observed, len(matched))
	pred.Confidence = math.Min(maxConfidence, math.Max(minConfidence, float64(len(matched))/10))
	return pred, nil
}

// pick returns the top numbers by (count desc, number asc), padded by uniform
// sampling from the numbers seen in the matched draws, then from 1..20.
func (p *Predictor) pick(counts, observed [models.MaxNumber + 1]int, matched int) []models.PredictedNumber {
	var ranked []int
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if counts[n] > 0 {
			ranked = append(ranked, n)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > models.NumbersPerField {
		ranked = ranked[:models.NumbersPerField]
	}

	chosen := make(map[int]bool, models.NumbersPerField)
	out := make([]models.PredictedNumber, 0, models.NumbersPerField)
	for _, n := range ranked {
		chosen[n] = true
		out = append(out, models.PredictedNumber{Number: n, Occurrences: counts[n], Probability: probability(counts[n], matched)})
	}

	for len(out) < models.NumbersPerField {
		pool := candidates(observed, chosen)
		if len(pool) == 0 {
			pool = candidates([models.MaxNumber + 1]int{}, chosen)
		}
		n := pool[p.rng.IntN(len(pool))]
		chosen[n] = true
		out = append(out, models.PredictedNumber{Number: n, Occurrences: counts[n], Probability: probability(counts[n], matched), Padded: true})
	}
	return out
}

// candidates lists the numbers not yet chosen. With an all-zero observed array it
// lists the whole 1..20 range.
func candidates(observed [models.MaxNumber + 1]int, chosen map[int]bool) []int {
	seenAny := false
	for _, c := range observed {
		if c > 0 {
			seenAny = true
			break
		}
	}
	var pool []int
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if chosen[n] || (seenAny && observed[n] == 0) {
			continue
		}
		pool = append(pool, n)
	}
	return pool
}

func probability(occurrences, matched int) int {
	v := int(math.Round(float64(occurrences) / float64(matched) * 100))
	return min(maxProbability, max(minProbability, v))
}

// MatchDraws joins draws to observations by calendar day (observation time taken in
// loc) and keeps each draw at most once when any same-day observation matches filter.
// Fallback observations never match.
func MatchDraws(draws []models.DrawRecord, observations []models.WeatherObservation, filter models.PredictionFilter, loc *time.Location) []models.DrawRecord {
	byDay := make(map[string][]models.WeatherObservation)
	for _, o := range observations {
		if o.IsDemo() {
			continue
		}
		day := utils.TimeDayKey(o.Timestamp, loc)
		byDay[day] = append(byDay[day], o)
	}

	var out []models.DrawRecord
	for _, d := range draws {
		day, ok := utils.DayKey(d.Date)
		if !ok {
			continue
		}
		for _, o := range byDay[day] {
			if Matches(o, filter) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Matches reports whether an observation satisfies every bound set in filter.
// Text filters are case-insensitive substring matches.
func Matches(o models.WeatherObservation, f models.PredictionFilter) bool {
	return within(o.Temperature, f.TempMin, f.TempMax) &&
		within(o.Humidity, f.HumidityMin, f.HumidityMax) &&
		within(o.PressureMMHg, f.PressureMin, f.PressureMax) &&
		within(o.WindSpeed, f.WindSpeedMin, f.WindSpeedMax) &&
		containsFold(o.WindDirection, f.WindDirection) &&
		containsFold(o.WeatherDescription, f.Description)
}

func within(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
