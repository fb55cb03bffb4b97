package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

// Listing page selectors. The site marks its markup with data-test
// attributes, which are far more stable than its generated class names.
const (
	selOffersList   = "div#offers-list"
	selOffer        = "div[data-test-offerid]"
	attrOfferID     = "data-test-offerid"
	selTitle        = "h2[data-test='offer-title']"
	selTitleLink    = "h2[data-test='offer-title'] a"
	selCompany      = "div[data-test='section-company']"
	selCompanyName  = selCompany + " h3[data-test='text-company-name']"
	selCompanyLogo  = "img[data-test='image-responsive']"
	selRegion       = "h4[data-test='text-region']"
	selLocationItem = "li[data-test^='offer-location-']"
	selSalary       = "span[data-test='offer-salary']"
	selOfferLink    = "a[data-test='link-offer']"
	selDateAdded    = "p[data-test='text-added']"
	selMaxPage      = "span[data-test='top-pagination-max-page-number']"
)

// locator is one strategy for pulling a field out of an offer fragment.
type locator struct {
	name string
	find func(s *goquery.Selection) string
}

// fieldRule tries its locators in order; the first non-empty normalized
// value wins.
type fieldRule struct {
	field    string
	locators []locator
}

func (r fieldRule) apply(s *goquery.Selection) (string, string) {
	for _, loc := range r.locators {
		if value := Normalize(loc.find(s)); value != "" {
			return value, loc.name
		}
	}
	return "", ""
}

func textOf(selector string) func(*goquery.Selection) string {
	return func(s *goquery.Selection) string {
		return s.Find(selector).First().Text()
	}
}

func attrOf(selector, attr string) func(*goquery.Selection) string {
	return func(s *goquery.Selection) string {
		value, _ := s.Find(selector).First().Attr(attr)
		return value
	}
}

var (
	positionRule = fieldRule{field: "position", locators: []locator{
		{name: "title-link", find: textOf(selTitleLink)},
		{name: "title", find: textOf(selTitle)},
	}}
	companyRule = fieldRule{field: "company", locators: []locator{
		{name: "company-section", find: textOf(selCompanyName)},
		{name: "logo-alt", find: func(s *goquery.Selection) string {
			// A present but nameless section is not recovered from the logo.
			if s.Find(selCompany).Length() > 0 {
				return ""
			}
			value, _ := s.Find(selCompanyLogo).First().Attr("alt")
			return value
		}},
	}}
	cityRule = fieldRule{field: "city", locators: []locator{
		{name: "region", find: textOf(selRegion)},
		{name: "location-item", find: textOf(selLocationItem)},
	}}
	salaryRule = fieldRule{field: "salary", locators: []locator{
		{name: "salary", find: textOf(selSalary)},
	}}
	linkRule = fieldRule{field: "offer_link", locators: []locator{
		{name: "title-link", find: attrOf(selTitleLink, "href")},
		{name: "link-offer", find: func(s *goquery.Selection) string {
			// Only when the title has no anchor at all; an anchor without
			// href rejects the offer.
			if s.Find(selTitleLink).Length() > 0 {
				return ""
			}
			value, _ := s.ChildrenFiltered(selOfferLink).First().Attr("href")
			return value
		}},
	}}
	dateRule = fieldRule{field: "date_added", locators: []locator{
		{name: "text-added", find: textOf(selDateAdded)},
	}}
)

// Extractor turns offer fragments into records.
type Extractor struct {
	log zerolog.Logger
}

func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log.With().Str("component", "extractor").Logger()}
}

// Extract builds a record from one offer fragment. It returns false when
// the position, company or link cannot be located. Relative links are
// resolved against pageURL.
func (e *Extractor) Extract(s *goquery.Selection, pageURL string) (models.JobRecord, bool) {
	rec := models.NewJobRecord()
	id, _ := s.Attr(attrOfferID)
	id = Normalize(id)
	log := e.log.With().Str("offer_id", models.OrNotAvailable(id)).Logger()

	position, _ := positionRule.apply(s)
	if position == "" {
		log.Debug().Msg("skipping offer: position not found")
		return models.JobRecord{}, false
	}
	rec.Position = position

	company, via := companyRule.apply(s)
	if company == "" {
		log.Debug().Str("position", position).Msg("skipping offer: company not found")
		return models.JobRecord{}, false
	}
	if via != "company-section" {
		log.Debug().Str("via", via).Msg("company taken from fallback")
	}
	rec.Company = company

	if city, _ := cityRule.apply(s); city != "" {
		rec.City = city
	}
	if salary, _ := salaryRule.apply(s); salary != "" {
		rec.Salary = salary
	}

	href, _ := linkRule.apply(s)
	link := resolveLink(pageURL, href)
	if link == "" {
		log.Debug().Str("position", position).Str("href", href).Msg("skipping offer: link not found")
		return models.JobRecord{}, false
	}
	rec.OfferLink = link

	if id != "" {
		rec.OfferID = id
	}

	if raw, _ := dateRule.apply(s); raw != "" {
		if date, ok := ParsePublishedDate(raw); ok {
			rec.DateAdded = date
		} else {
			log.Debug().Str("raw", raw).Msg("unrecognised publication date")
		}
	}

	if !rec.Valid() {
		return models.JobRecord{}, false
	}
	return rec, true
}

// resolveLink makes href absolute against base. It returns "" when no
// absolute http(s) URL can be produced.
func resolveLink(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		if base == "" {
			base = BaseURL
		}
		baseURL, err := url.Parse(base)
		if err != nil || !baseURL.IsAbs() {
			return ""
		}
		ref = baseURL.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return ""
	}
	return ref.String()
}
