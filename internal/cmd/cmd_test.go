package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/config"
	"github.com/Matiyaa/find-a-workinator/internal/models"
	"github.com/Matiyaa/find-a-workinator/internal/network"
	"github.com/Matiyaa/find-a-workinator/internal/publish"
	"github.com/Matiyaa/find-a-workinator/internal/scraper"
	"github.com/Matiyaa/find-a-workinator/internal/store"
	"github.com/Matiyaa/find-a-workinator/internal/ui"
)

type fakeResponse struct {
	status int
	body   string
}

// fakeSite answers requests by URL; unknown URLs get a 404.
type fakeSite struct {
	pages    map[string]fakeResponse
	requests []string
}

func (f *fakeSite) Do(req *fhttp.Request) (*fhttp.Response, error) {
	f.requests = append(f.requests, req.URL.String())
	r, ok := f.pages[req.URL.String()]
	if !ok {
		r = fakeResponse{status: 404, body: "not found"}
	}
	return &fhttp.Response{
		StatusCode: r.status,
		Header:     fhttp.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

type recordingPublisher struct {
	offers []models.StoredOffer
}

func (p *recordingPublisher) Publish(_ context.Context, offers []models.StoredOffer) (int, error) {
	p.offers = append(p.offers, offers...)
	return len(offers), nil
}

func (p *recordingPublisher) Close() error { return nil }

type testEnv struct {
	ctx       *Context
	out       *bytes.Buffer
	err       *bytes.Buffer
	store     *store.Memory
	site      *fakeSite
	published *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FAW_PROXIES", "")

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cfg := config.DefaultConfig()
	cfg.DebugDir = t.TempDir()
	cfg.RequestsPerMinute = 0

	env := &testEnv{
		out:       out,
		err:       errOut,
		store:     store.NewMemory(zerolog.Nop()),
		site:      &fakeSite{pages: map[string]fakeResponse{}},
		published: &recordingPublisher{},
	}
	env.ctx = &Context{
		Out:       out,
		Err:       errOut,
		UI:        ui.New(out, errOut, ui.ColorNever, true),
		Config:    cfg,
		Logger:    zerolog.Nop(),
		PlainText: true,
		OpenStore: func(context.Context) (store.Store, error) {
			return env.store, nil
		},
		NewDoer: func(models.ScraperConfig, *network.Rotator) (scraper.Doer, error) {
			return env.site, nil
		},
		OpenPublisher: func(context.Context) (publish.Publisher, error) {
			return env.published, nil
		},
	}
	return env
}

func offerHTML(id, company, position, city string) string {
	return `<div data-test-offerid="` + id + `">
  <h2 data-test="offer-title"><a href="/praca/oferta,` + id + `">` + position + `</a></h2>
  <div data-test="section-company"><h3 data-test="text-company-name">` + company + `</h3></div>
  <h4 data-test="text-region">` + city + `</h4>
  <p data-test="text-added">Opublikowana: 21 czerwca 2025</p>
</div>`
}

func listingHTML(maxPage string, offers ...string) string {
	return `<html><body><span data-test="top-pagination-max-page-number">` + maxPage + `</span>
<div id="offers-list">` + strings.Join(offers, "\n") + `</div></body></html>`
}
