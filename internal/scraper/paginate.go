package scraper

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

const noResultsMarker = "nie znaleźliśmy ofert pasujących"

// StopReason explains why a scrape session ended.
type StopReason string

const (
	StopTargetReached    StopReason = "target_reached"
	StopLastPage         StopReason = "last_page"
	StopNoResults        StopReason = "no_results"
	StopLayoutMismatch   StopReason = "layout_mismatch"
	StopEmptyContainer   StopReason = "empty_container"
	StopExtractionFailed StopReason = "extraction_failed"
	StopFetchFailed      StopReason = "fetch_failed"
	StopCancelled        StopReason = "cancelled"
)

// Abnormal reports whether the session ended on a page it could not use.
func (r StopReason) Abnormal() bool {
	switch r {
	case StopLayoutMismatch, StopEmptyContainer, StopExtractionFailed, StopFetchFailed, StopCancelled:
		return true
	}
	return false
}

// PageFetcher retrieves one result page. *Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, target string) (*Page, error)
}

// Result is what a session collected and why it stopped. Offers gathered
// before a failure are always kept.
type Result struct {
	Offers      []models.JobRecord
	Pages       int
	MaxPage     int
	Stop        StopReason
	SoftBlocked bool
	Err         error
}

// session tracks the progress of a single Run.
type session struct {
	target  int
	page    int
	maxPage int
	offers  []models.JobRecord
}

func (s *session) full() bool {
	return len(s.offers) >= s.target
}

func (s *session) morePages() bool {
	return s.maxPage == 0 || s.page <= s.maxPage
}

// Controller walks result pages for one query until enough offers are
// collected or the results run out.
type Controller struct {
	fetcher   PageFetcher
	extractor *Extractor
	query     models.SearchQuery
	log       zerolog.Logger
	debug     DebugSink
}

type ControllerOption func(*Controller)

// WithDebugSink sets where unusable pages are captured.
func WithDebugSink(sink DebugSink) ControllerOption {
	return func(c *Controller) {
		if sink != nil {
			c.debug = sink
		}
	}
}

func NewController(fetcher PageFetcher, query models.SearchQuery, log zerolog.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		extractor: NewExtractor(log),
		query:     query,
		log:       log.With().Str("component", "paginator").Logger(),
		debug:     discardSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches pages sequentially, starting at page 1, until target offers
// have been extracted or a stop condition is hit.
func (c *Controller) Run(ctx context.Context, target int) Result {
	s := &session{target: target, page: 1}
	res := Result{}

	finish := func(reason StopReason, err error) Result {
		res.Offers = s.offers
		res.MaxPage = s.maxPage
		res.Stop = reason
		res.Err = err
		c.log.Info().
			Str("stop", string(reason)).
			Int("offers", len(s.offers)).
			Int("pages", res.Pages).
			Msg("scrape session finished")
		return res
	}

	for !s.full() && s.morePages() {
		if err := ctx.Err(); err != nil {
			return finish(StopCancelled, err)
		}

		pageURL := BuildURL(c.query.WithPage(s.page))
		c.log.Info().Int("page", s.page).Str("url", pageURL).Msg("scraping page")

		page, err := c.fetcher.Fetch(ctx, pageURL)
		res.Pages++
		if err != nil {
			if ctx.Err() != nil {
				return finish(StopCancelled, err)
			}
			c.log.Error().Err(err).Int("page", s.page).Msg("failed to fetch page")
			return finish(StopFetchFailed, err)
		}
		if page.SoftBlocked {
			res.SoftBlocked = true
		}

		if s.page == 1 && s.maxPage == 0 {
			if n, ok := maxPageOf(page.Doc); ok {
				s.maxPage = n
				c.log.Info().Int("max_page", n).Msg("detected page count")
			} else {
				c.log.Warn().Msg("could not determine max pages; continuing until results run out")
			}
		}

		container := page.Doc.Find(selOffersList).First()
		if container.Length() == 0 {
			if hasNoResults(page.Body) {
				c.log.Info().Msg("site reports no matching offers")
				return finish(StopNoResults, nil)
			}
			c.log.Error().Int("page", s.page).Msg("offer list container not found; layout may have changed")
			c.debug.Capture(s.page, ReasonMainAreaNotFound, page.Body)
			return finish(StopLayoutMismatch, nil)
		}

		fragments := container.Find(selOffer)
		if fragments.Length() == 0 {
			if hasNoResults(page.Body) {
				c.log.Info().Msg("site reports no matching offers")
				return finish(StopNoResults, nil)
			}
			c.log.Warn().Int("page", s.page).Msg("no offer elements inside container")
			c.debug.Capture(s.page, ReasonNoOffers, page.Body)
			return finish(StopEmptyContainer, nil)
		}
		c.log.Info().Int("page", s.page).Int("fragments", fragments.Length()).Msg("found offer elements")

		extracted := 0
		fragments.EachWithBreak(func(_ int, fragment *goquery.Selection) bool {
			rec, ok := c.extractor.Extract(fragment, page.URL)
			if ok {
				s.offers = append(s.offers, rec)
				extracted++
			}
			return !s.full()
		})

		if extracted == 0 {
			c.log.Warn().Int("page", s.page).Msg("offer elements found but none could be extracted")
			c.debug.Capture(s.page, ReasonExtraction, page.Body)
			return finish(StopExtractionFailed, nil)
		}
		c.log.Info().Int("page", s.page).Int("extracted", extracted).Int("total", len(s.offers)).Msg("page processed")

		if s.full() {
			break
		}
		s.page++
	}

	if s.full() {
		return finish(StopTargetReached, nil)
	}
	return finish(StopLastPage, nil)
}

func maxPageOf(doc *goquery.Document) (int, bool) {
	raw := Normalize(doc.Find(selMaxPage).First().Text())
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func hasNoResults(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), noResultsMarker)
}
