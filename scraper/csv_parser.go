// backend/scraper/csv_parser.go
package scraper

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/lottometeo/backend/models"
)

// DrawCSVRow is the archive CSV layout. Fields are space separated numbers, e.g. "1 5 9 13".
// Weather columns are written on export and ignored on import.
type DrawCSVRow struct {
	DrawID             string `csv:"draw_id"`
	Date               string `csv:"date"`
	Time               string `csv:"time"`
	Field1             string `csv:"field_1"`
	Field2             string `csv:"field_2"`
	Temperature        string `csv:"temperature,omitempty"`
	WeatherDescription string `csv:"weather_description,omitempty"`
	Pressure           string `csv:"pressure,omitempty"`
}

// ParseDrawsCSV reads archived draws from CSV. Rows that do not form a valid draw are
// returned as problems and skipped; the first occurrence of a draw id wins.
// Only an unreadable stream is an error.
func ParseDrawsCSV(reader io.Reader) ([]models.DrawRecord, []*ParseError, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create CSV decoder for draws: %v", models.ErrExtraction, err)
	}

	var (
		draws    []models.DrawRecord
		problems []*ParseError
		seen     = make(map[string]bool)
	)
	for i := 1; ; i++ {
		var row DrawCSVRow
		err := decoder.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				problems = append(problems, &ParseError{Row: i, Reason: ReasonInvalid,
					Err: fmt.Errorf("%w: %v", models.ErrExtraction, err)})
				continue
			}
			return nil, nil, fmt.Errorf("%w: failed to decode draw CSV data: %v", models.ErrExtraction, err)
		}

		draw, perr := row.toDraw(i)
		if perr != nil {
			problems = append(problems, perr)
			continue
		}
		if seen[draw.DrawID] {
			continue
		}
		seen[draw.DrawID] = true
		draws = append(draws, draw)
	}
	return draws, problems, nil
}

func (r DrawCSVRow) toDraw(i int) (models.DrawRecord, *ParseError) {
	id := strings.TrimSpace(r.DrawID)
	f1, err := parseField(r.Field1)
	if err != nil {
		return models.DrawRecord{}, &ParseError{Row: i, DrawID: id, Reason: ReasonInvalid,
			Err: fmt.Errorf("%w: field_1: %v", models.ErrValidation, err)}
	}
	f2, err := parseField(r.Field2)
	if err != nil {
		return models.DrawRecord{}, &ParseError{Row: i, DrawID: id, Reason: ReasonInvalid,
			Err: fmt.Errorf("%w: field_2: %v", models.ErrValidation, err)}
	}
	clock := padClock(strings.TrimSpace(r.Time))
	if clock == "" {
		clock = defaultDrawTime
	}
	draw := models.DrawRecord{
		DrawID: id,
		Date:   strings.TrimSpace(r.Date),
		Time:   clock,
		Field1: f1,
		Field2: f2,
	}
	if err := models.ValidateDraw(draw); err != nil {
		return models.DrawRecord{}, &ParseError{Row: i, DrawID: id, Reason: ReasonInvalid, Err: err}
	}
	return draw, nil
}

func parseField(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '[' || r == ']'
	})
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

// WriteDrawsCSV writes draws in the DrawCSVRow layout, header first.
func WriteDrawsCSV(w io.Writer, draws []models.DrawRecord) error {
	cw := csv.NewWriter(w)
	encoder := csvutil.NewEncoder(cw)
	if err := encoder.EncodeHeader(DrawCSVRow{}); err != nil {
		return fmt.Errorf("failed to write draw CSV header: %w", err)
	}
	for _, d := range draws {
		if err := encoder.Encode(toCSVRow(d)); err != nil {
			return fmt.Errorf("failed to encode draw %s: %w", d.DrawID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func toCSVRow(d models.DrawRecord) DrawCSVRow {
	row := DrawCSVRow{
		DrawID: d.DrawID,
		Date:   d.Date,
		Time:   d.Time,
		Field1: joinField(d.Field1),
		Field2: joinField(d.Field2),
	}
	if d.Temperature != nil {
		row.Temperature = strconv.FormatFloat(*d.Temperature, 'f', -1, 64)
	}
	if d.WeatherDescription != nil {
		row.WeatherDescription = *d.WeatherDescription
	}
	if d.Pressure != nil {
		row.Pressure = strconv.FormatFloat(*d.Pressure, 'f', 1, 64)
	}
	return row
}

func joinField(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
