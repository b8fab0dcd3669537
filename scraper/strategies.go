// backend/scraper/strategies.go
package scraper

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/lottometeo/backend/models"
	"github.com/gewnthar/lottometeo/backend/utils"
)

// numberStrategy pulls candidate numbers out of one archive row. It reports false
// when it finds nothing usable; it never fails.
type numberStrategy struct {
	name    string
	extract func(row *goquery.Selection) ([]int, bool)
}

// numberStrategies are tried in order; the first match wins.
var numberStrategies = []numberStrategy{
	{name: "containers", extract: fromNumberContainers},
	{name: "delimited", extract: fromDelimitedText},
	{name: "lines", extract: fromLines},
}

const numberContainerSelector = `[class*="number"], [class*="ball"], [class*="comb"]`

var (
	smallIntRegex  = regexp.MustCompile(`\b\d{1,2}\b`)
	delimitedRegex = regexp.MustCompile(`(\d{1,2})\s+(\d{1,2})\s+(\d{1,2})\s+(\d{1,2})\s*[|/;–—]\s*(\d{1,2})\s+(\d{1,2})\s+(\d{1,2})\s+(\d{1,2})`)

	dateTimeRegex = regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})\s*(?:в\s+)?(\d{1,2}:\d{2})`)
	dateRegex     = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`)
	timeRegex     = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)

	detailLinkRegex = regexp.MustCompile(`/draws/archive/[^/?#]+/(\d+)`)
	labelledIDRegex = regexp.MustCompile(`№\s*(\d{3,})`)
	bareIDRegex     = regexp.MustCompile(`\b(\d{5,7})\b`)
)

// defaultDrawTime is used when a row carries a date but no clock time.
const defaultDrawTime = "15:00"

func inRange(n int) bool {
	return n >= models.MinNumber && n <= models.MaxNumber
}

// numbersIn returns every 1-2 digit integer in text that lies in the draw range.
func numbersIn(text string) []int {
	var out []int
	for _, m := range smallIntRegex.FindAllString(text, -1) {
		n, err := strconv.Atoi(m)
		if err == nil && inRange(n) {
			out = append(out, n)
		}
	}
	return out
}

func fromNumberContainers(row *goquery.Selection) ([]int, bool) {
	var numbers []int
	row.Find(numberContainerSelector).Each(func(_ int, s *goquery.Selection) {
		numbers = append(numbers, numbersIn(s.Text())...)
	})
	if len(distinctSorted(numbers)) < models.NumbersPerDraw {
		return nil, false
	}
	return numbers, true
}

func fromDelimitedText(row *goquery.Selection) ([]int, bool) {
	m := delimitedRegex.FindStringSubmatch(strings.Join(strings.Fields(row.Text()), " "))
	if m == nil {
		return nil, false
	}
	numbers := make([]int, 0, models.NumbersPerDraw)
	for _, g := range m[1:] {
		n, err := strconv.Atoi(g)
		if err != nil || !inRange(n) {
			return nil, false
		}
		numbers = append(numbers, n)
	}
	return numbers, true
}

// fromLines scans the row line by line after removing dates, clock times and ids,
// so a day or month is never mistaken for a drawn number.
func fromLines(row *goquery.Selection) ([]int, bool) {
	text := row.Text()
	text = dateRegex.ReplaceAllString(text, " ")
	text = timeRegex.ReplaceAllString(text, " ")
	text = labelledIDRegex.ReplaceAllString(text, " ")
	text = bareIDRegex.ReplaceAllString(text, " ")

	var numbers []int
	for _, line := range strings.Split(text, "\n") {
		numbers = append(numbers, numbersIn(line)...)
		if len(numbers) >= models.NumbersPerDraw {
			return numbers[:models.NumbersPerDraw], true
		}
	}
	return nil, false
}

// distinctSorted returns the unique values of numbers in ascending order.
func distinctSorted(numbers []int) []int {
	seen := make(map[int]bool, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// extractNumbers runs the strategy chain and returns the winning numbers and the
// strategy name.
func extractNumbers(row *goquery.Selection) ([]int, string, bool) {
	for _, s := range numberStrategies {
		if numbers, ok := s.extract(row); ok {
			return numbers, s.name, true
		}
	}
	return nil, "", false
}

// extractDrawID prefers the detail-page link and falls back to a numeric pattern in
// the row text. It never invents an id.
func extractDrawID(row *goquery.Selection) (string, bool) {
	var id string
	links := row.Find("a[href]")
	if goquery.NodeName(row) == "a" {
		links = links.AddSelection(row)
	}
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := detailLinkRegex.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	if id != "" {
		return id, true
	}

	text := row.Text()
	if m := labelledIDRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := bareIDRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// spansSeveralDraws reports whether row wraps other archive rows (when nested is a
// selector) or names more than one draw id or calendar day. A row repeating its own
// date is still one draw.
func spansSeveralDraws(row *goquery.Selection, nested string) bool {
	if nested != "" && row.Find(nested).Length() > 0 {
		return true
	}

	ids := make(map[string]bool)
	row.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := detailLinkRegex.FindStringSubmatch(href); m != nil {
			ids[m[1]] = true
		}
	})
	text := row.Text()
	for _, m := range labelledIDRegex.FindAllStringSubmatch(text, -1) {
		ids[m[1]] = true
	}
	if len(ids) > 1 {
		return true
	}

	days := make(map[string]bool)
	for _, d := range dateRegex.FindAllString(text, -1) {
		if key, ok := utils.DayKey(d); ok {
			days[key] = true
		} else {
			days[d] = true
		}
	}
	return len(days) > 1
}

// extractDateTime tries the combined "DD.MM.YYYY HH:MM" form first, then each part
// on its own. A missing time becomes defaultDrawTime; hours are zero-padded.
func extractDateTime(text string) (date, clock string, ok bool) {
	if m := dateTimeRegex.FindStringSubmatch(text); m != nil {
		return m[1], padClock(m[2]), true
	}
	date = dateRegex.FindString(text)
	if date == "" {
		return "", "", false
	}
	clock = timeRegex.FindString(text)
	if clock == "" {
		clock = defaultDrawTime
	}
	return date, padClock(clock), true
}

// padClock rewrites "9:00" as "09:00". Anything that is not a valid time of day is
// returned unchanged and left to draw validation.
func padClock(clock string) string {
	minutes, err := utils.ParseClock(clock)
	if err != nil {
		return clock
	}
	return utils.FormatClock(minutes)
}
