// backend/stats/frequency.go
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/gewnthar/lottometeo/backend/models"
)

const (
	poolSize    = models.MaxNumber - models.MinNumber + 1
	rankedShown = 5
)

// Frequency counts every number 1..20 across both fields of all draws.
//
// expected = total_draws_estimate * 8/20 with total_draws_estimate = numbers seen / 8.
// A number is hot when count > expected*1.1 and cold when count < expected*0.9.
// Both comparisons are strict and are evaluated in integers, so a count sitting
// exactly on a boundary stays normal.
func Frequency(draws []models.DrawRecord) (models.FrequencyStats, error) {
	var counts [models.MaxNumber + 1]int
	total, counted := 0, 0
	for _, d := range draws {
		counted++
		for _, n := range d.Numbers() {
			if n < models.MinNumber || n > models.MaxNumber {
				continue
			}
			counts[n]++
			total++
		}
	}
	if total == 0 {
		return models.FrequencyStats{}, fmt.Errorf("%w: no draws stored", models.ErrNoData)
	}

	estimate := float64(total) / models.NumbersPerDraw
	expected := estimate * models.NumbersPerDraw / poolSize

	res := models.FrequencyStats{
		TotalNumbers:       total,
		TotalDrawsEstimate: round2(estimate),
		DrawsCounted:       counted,
		ExpectedCount:      round2(expected),
		Numbers:            make([]models.NumberFrequency, 0, poolSize),
		Hot:                []int{},
		Cold:               []int{},
	}
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		c := counts[n]
		nf := models.NumberFrequency{
			Number:       n,
			Count:        c,
			Expected:     round2(expected),
			DeviationPct: round2((float64(c) - expected) / expected * 100),
			Class:        classify(c, total),
		}
		switch nf.Class {
		case models.ClassHot:
			res.Hot = append(res.Hot, n)
		case models.ClassCold:
			res.Cold = append(res.Cold, n)
		}
		res.Numbers = append(res.Numbers, nf)
	}

	res.Ranked = append([]models.NumberFrequency(nil), res.Numbers...)
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		if res.Ranked[i].Count != res.Ranked[j].Count {
			return res.Ranked[i].Count > res.Ranked[j].Count
		}
		return res.Ranked[i].Number < res.Ranked[j].Number
	})
	res.MostCommon = res.Ranked[:rankedShown]

	least := append([]models.NumberFrequency(nil), res.Numbers...)
	sort.SliceStable(least, func(i, j int) bool {
		if least[i].Count != least[j].Count {
			return least[i].Count < least[j].Count
		}
		return least[i].Number < least[j].Number
	})
	res.LeastCommon = least[:rankedShown]
	return res, nil
}

// classify compares count with expected = total/20 using
// count > 1.1*total/20  <=>  200*count > 11*total (and 9*total for cold).
func classify(count, total int) string {
	switch {
	case 10*poolSize*count > 11*total:
		return models.ClassHot
	case 10*poolSize*count < 9*total:
		return models.ClassCold
	default:
		return models.ClassNormal
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
