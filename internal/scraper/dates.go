package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var (
	polishDatePattern = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)
	publishedPrefix   = regexp.MustCompile(`(?i)^\s*opublikowana\s*:?\s*`)
)

var polishMonths = map[string]time.Month{
	"stycznia": time.January, "styczeń": time.January, "styczen": time.January,
	"lutego": time.February, "luty": time.February,
	"marca": time.March, "marzec": time.March,
	"kwietnia": time.April, "kwiecień": time.April, "kwiecien": time.April,
	"maja": time.May, "maj": time.May,
	"czerwca": time.June, "czerwiec": time.June,
	"lipca": time.July, "lipiec": time.July,
	"sierpnia": time.August, "sierpień": time.August, "sierpien": time.August,
	"września": time.September, "wrzesień": time.September, "wrzesnia": time.September, "wrzesien": time.September,
	"października": time.October, "październik": time.October, "pazdziernika": time.October, "pazdziernik": time.October,
	"listopada": time.November, "listopad": time.November,
	"grudnia": time.December, "grudzień": time.December, "grudzien": time.December,
}

// ParsePublishedDate converts a listing's publication label, such as
// "Opublikowana: 21 czerwca 2025", into an ISO date. Day-first numeric
// dates and ISO dates are accepted as well.
func ParsePublishedDate(value string) (string, bool) {
	value = Normalize(publishedPrefix.ReplaceAllString(Normalize(value), ""))
	if value == "" {
		return "", false
	}

	if m := polishDatePattern.FindStringSubmatch(value); m != nil {
		month, ok := polishMonths[strings.ToLower(m[2])]
		if !ok {
			return "", false
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		return formatDate(year, month, day)
	}

	for _, layout := range []string{"02.01.2006", "2.1.2006", isoDate} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format(isoDate), true
		}
	}
	return "", false
}

func formatDate(year int, month time.Month, day int) (string, bool) {
	ts := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if ts.Day() != day || ts.Month() != month {
		return "", false
	}
	return ts.Format(isoDate), true
}
