package scraper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"github.com/Matiyaa/find-a-workinator/internal/cache"
)

const (
	cooldownKey     = "faw_pracuj_blocked"
	snippetLength   = 500
	DefaultCooldown = 15 * time.Minute
)

// softBlockMarkers are phrases the site serves with a 2xx status when it
// has intercepted an automated client.
var softBlockMarkers = []string{
	"Przepraszamy, strona której szukasz jest niedostępna",
	"detected unusual activity",
}

// Doer sends one HTTP request. network.Client satisfies it.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

// Page is a fetched and parsed result page.
type Page struct {
	URL         string
	StatusCode  int
	Body        []byte
	Doc         *goquery.Document
	SoftBlocked bool
}

// Fetcher performs single page exchanges against the listing site.
type Fetcher struct {
	client   Doer
	log      zerolog.Logger
	headers  map[string]string
	cooldown cache.Service
	coolFor  time.Duration
}

type FetcherOption func(*Fetcher)

// WithCooldown makes a 403 suppress further requests for d, across runs
// when svc is shared (memcached).
func WithCooldown(svc cache.Service, d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cooldown = svc
		if d <= 0 {
			d = DefaultCooldown
		}
		f.coolFor = d
	}
}

// WithHeaders overrides or extends the default browser header set.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		for key, value := range headers {
			f.headers[strings.ToLower(key)] = value
		}
	}
}

func NewFetcher(client Doer, log zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:  client,
		log:     log.With().Str("component", "fetcher").Logger(),
		headers: browserHeaders(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func browserHeaders() map[string]string {
	return map[string]string{
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"accept-language":           "pl-PL,pl;q=0.9,en-US;q=0.8,en;q=0.7",
		"cache-control":             "no-cache",
		"dnt":                       "1",
		"referer":                   BaseURL + "/",
		"sec-fetch-dest":            "document",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "same-origin",
		"sec-fetch-user":            "?1",
		"upgrade-insecure-requests": "1",
	}
}

var headerOrder = []string{
	"cache-control",
	"upgrade-insecure-requests",
	"user-agent",
	"accept",
	"sec-fetch-site",
	"sec-fetch-mode",
	"sec-fetch-user",
	"sec-fetch-dest",
	"referer",
	"accept-language",
	"dnt",
}

// Fetch issues a GET for target. Soft blocks are reported on the returned
// page; hard blocks, transport failures and non-2xx answers are returned
// as *RequestError.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Page, error) {
	if f.coolingDown() {
		f.log.Warn().Str("url", target).Msg("site blocked us recently; skipping request")
		return nil, &RequestError{Kind: KindCooldown, URL: target}
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, URL: target, Err: err}
	}
	f.applyHeaders(req)

	f.log.Info().Str("url", target).Msg("making request")
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Error().Err(err).Str("url", target).Msg("request failed")
		return nil, &RequestError{Kind: KindTransport, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.log.Info().Int("status", resp.StatusCode).Str("url", finalURL).Msg("response received")
	if f.log.GetLevel() <= zerolog.DebugLevel {
		f.log.Debug().Interface("headers", resp.Header).Msg("response headers")
	}

	if resp.StatusCode == fhttp.StatusForbidden {
		f.log.Error().Int("status", resp.StatusCode).Str("url", finalURL).Msg("anti-bot challenge failed or persisted")
		f.startCooldown()
		return nil, &RequestError{
			Kind:       KindBlocked,
			URL:        finalURL,
			StatusCode: resp.StatusCode,
			Snippet:    snippet(body),
		}
	}

	softBlocked := containsSoftBlock(body)
	if softBlocked {
		f.log.Warn().Int("status", resp.StatusCode).Str("url", finalURL).Msg("potential block detected despite status")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.log.Error().Int("status", resp.StatusCode).Str("snippet", snippet(body)).Msg("unexpected status")
		return nil, &RequestError{
			Kind:       KindStatus,
			URL:        finalURL,
			StatusCode: resp.StatusCode,
			Snippet:    snippet(body),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, URL: finalURL, StatusCode: resp.StatusCode, Err: err}
	}

	return &Page{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		Doc:         doc,
		SoftBlocked: softBlocked,
	}, nil
}

func (f *Fetcher) applyHeaders(req *fhttp.Request) {
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
	req.Header[fhttp.HeaderOrderKey] = headerOrder
}

func (f *Fetcher) coolingDown() bool {
	if f.cooldown == nil {
		return false
	}
	_, err := f.cooldown.Get(cooldownKey)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		f.log.Warn().Err(err).Msg("cooldown lookup failed")
	}
	return false
}

func (f *Fetcher) startCooldown() {
	if f.cooldown == nil {
		return
	}
	until := time.Now().Add(f.coolFor).UTC().Format(time.RFC3339)
	if err := f.cooldown.Set(cooldownKey, []byte(until), f.coolFor); err != nil {
		f.log.Warn().Err(err).Msg("could not record block cooldown")
		return
	}
	f.log.Warn().Str("until", until).Msg("holding off further requests")
}

// readBody reads the response and converts it to UTF-8 when the server
// declares or sniffs as another charset.
func readBody(resp *fhttp.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	enc, name, _ := charset.DetermineEncoding(raw, resp.Header.Get("Content-Type"))
	if strings.EqualFold(name, "utf-8") {
		return raw, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, enc.NewDecoder().Reader(bytes.NewReader(raw))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func containsSoftBlock(body []byte) bool {
	text := string(body)
	for _, marker := range softBlockMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func snippet(body []byte) string {
	if len(body) <= snippetLength {
		return string(body)
	}
	return string(body[:snippetLength]) + "..."
}
