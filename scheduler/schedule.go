// backend/scheduler/schedule.go
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/utils"
)

// JobKind names what a slot triggers.
type JobKind string

const (
	// JobCombined collects weather, then scrapes draws.
	JobCombined JobKind = "combined"
	// JobWeather collects weather only.
	JobWeather JobKind = "weather"
)

// Slot is a daily time of day, in minutes after midnight, and the job it fires.
type Slot struct {
	Minute int
	Kind   JobKind
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s", utils.FormatClock(s.Minute), s.Kind)
}

// Schedule is the recurring daily plan. Slots are ordered by time of day; a
// combined slot sorts before a weather slot at the same minute, though
// BuildSchedule never produces both.
type Schedule struct {
	Slots []Slot
}

// BuildSchedule expands the configured combined times and the weather-only window.
// Weather-only slots that coincide with a combined slot are left out.
func BuildSchedule(cfg config.ScheduleConfig) (*Schedule, error) {
	combined := make(map[int]bool)
	var slots []Slot
	for _, t := range cfg.CombinedTimes {
		m, err := utils.ParseClock(t)
		if err != nil {
			return nil, fmt.Errorf("combined time: %w", err)
		}
		if combined[m] {
			continue
		}
		combined[m] = true
		slots = append(slots, Slot{Minute: m, Kind: JobCombined})
	}

	start, err := utils.ParseClock(cfg.WeatherStart)
	if err != nil {
		return nil, fmt.Errorf("weather window start: %w", err)
	}
	end, err := utils.ParseClock(cfg.WeatherEnd)
	if err != nil {
		return nil, fmt.Errorf("weather window end: %w", err)
	}
	step := int(cfg.WeatherStep / time.Minute)
	if step <= 0 {
		return nil, fmt.Errorf("weather step %s is shorter than a minute", cfg.WeatherStep)
	}
	for m := start; m <= end; m += step {
		if !combined[m] {
			slots = append(slots, Slot{Minute: m, Kind: JobWeather})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Minute != slots[j].Minute {
			return slots[i].Minute < slots[j].Minute
		}
		return slots[i].Kind == JobCombined && slots[j].Kind != JobCombined
	})
	return &Schedule{Slots: slots}, nil
}

// Times returns the "HH:MM" times of every slot of the given kind.
func (s *Schedule) Times(kind JobKind) []string {
	var out []string
	for _, sl := range s.Slots {
		if sl.Kind == kind {
			out = append(out, utils.FormatClock(sl.Minute))
		}
	}
	return out
}

// Occurrence is one firing of a slot on a specific day.
type Occurrence struct {
	Slot
	At time.Time
}

// Due returns the slot firings that fall in (after, until], in time order, with the
// wall clock taken in loc.
func (s *Schedule) Due(after, until time.Time, loc *time.Location) []Occurrence {
	if !until.After(after) {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	a, u := after.In(loc), until.In(loc)

	var out []Occurrence
	day := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc)
	for !day.After(u) {
		for _, sl := range s.Slots {
			at := time.Date(day.Year(), day.Month(), day.Day(), sl.Minute/60, sl.Minute%60, 0, 0, loc)
			if at.After(a) && !at.After(u) {
				out = append(out, Occurrence{Slot: sl, At: at})
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
