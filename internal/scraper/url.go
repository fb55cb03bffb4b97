package scraper

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

const (
	BaseURL    = "https://www.pracuj.pl"
	ListingURL = BaseURL + "/praca"
)

// BuildURL derives the listing URL for q. Page 1 is implicit and never
// carries a pn parameter.
func BuildURL(q models.SearchQuery) string {
	var b strings.Builder
	b.WriteString(ListingURL)

	if keywords := strings.TrimSpace(q.Keywords); keywords != "" {
		b.WriteString("/" + escapeSegment(keywords) + ";kw")
	}
	if city := strings.TrimSpace(q.City); city != "" {
		b.WriteString("/" + escapeSegment(city) + ";wp")
	}

	var params []string
	if q.Distance > 0 {
		params = append(params, "rd="+strconv.Itoa(q.Distance))
	}
	if page := q.PageOrDefault(); page > 1 {
		params = append(params, "pn="+strconv.Itoa(page))
	}
	if len(params) > 0 {
		b.WriteString("?" + strings.Join(params, "&"))
	}
	return b.String()
}

// escapeSegment percent-encodes user text for a path segment: spaces become
// %20 and a literal plus becomes %2B. Slashes and semicolons are escaped too
// so they cannot split the segment or fake a ;kw/;wp marker.
func escapeSegment(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
