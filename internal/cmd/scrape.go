package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/cache"
	"github.com/Matiyaa/find-a-workinator/internal/config"
	"github.com/Matiyaa/find-a-workinator/internal/models"
	"github.com/Matiyaa/find-a-workinator/internal/network"
	"github.com/Matiyaa/find-a-workinator/internal/scraper"
	"github.com/Matiyaa/find-a-workinator/internal/store"
)

const proxyBanDuration = 10 * time.Minute

type ScrapeCmd struct {
	Keywords  string `short:"k" help:"Search keywords (e.g. 'python developer')."`
	City      string `short:"c" help:"City to search in (default: config default_city)."`
	Distance  int    `short:"d" help:"Search radius around the city in km; 0 means the city only."`
	MaxOffers int    `short:"m" name:"max-offers" help:"Stop after this many offers."`
	NoSave    bool   `help:"Print offers without storing them."`
	Proxies   string `help:"Comma-separated proxy URLs." env:"FAW_PROXIES"`
	OutputOptions
}

// scrapeSummary is what one scrape run produced.
type scrapeSummary struct {
	Found      int
	Saved      int
	Duplicates int
	Failed     int
	Published  int
	Stop       scraper.StopReason
}

func (s scrapeSummary) String() string {
	return fmt.Sprintf("summary: found=%d saved=%d duplicates=%d failed=%d stop=%s",
		s.Found, s.Saved, s.Duplicates, s.Failed, s.Stop)
}

func (s *ScrapeCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	query := models.SearchQuery{
		Keywords: strings.TrimSpace(s.Keywords),
		City:     strings.TrimSpace(firstNonEmpty(s.City, cfg.DefaultCity)),
		Distance: defaultInt(s.Distance, cfg.DefaultDistance),
	}
	if query.Distance < 0 {
		return fmt.Errorf("--distance must not be negative")
	}
	target := defaultInt(s.MaxOffers, cfg.DefaultMaxOffers)
	if target <= 0 {
		return fmt.Errorf("--max-offers must be positive")
	}

	log := ctx.Logger.With().Str("keywords", query.Keywords).Str("city", query.City).Logger()
	runCtx := ctx.Ctx()

	var st store.Store
	if !s.NoSave {
		opened, err := ctx.openStore(runCtx)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		st = opened
		defer st.Close()
	}

	proxies, err := config.LoadProxies(s.Proxies)
	if err != nil {
		return err
	}
	var rotator *network.Rotator
	if len(proxies) > 0 {
		rotator, err = network.NewRotator(proxies, proxyBanDuration)
		if err != nil {
			return err
		}
	}

	doer, err := ctx.newDoer(models.ScraperConfig{
		Proxies:           proxies,
		Timeout:           network.DefaultTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, rotator)
	if err != nil {
		return err
	}

	fetcher := scraper.NewFetcher(doer, log, scraper.WithCooldown(
		cooldownCache(cfg, log),
		time.Duration(cfg.BlockCooldownMinutes)*time.Minute,
	))
	controller := scraper.NewController(fetcher, query, log,
		scraper.WithDebugSink(scraper.DirSink{Dir: cfg.DebugDir, Log: log}),
	)

	log.Info().Str("url", scraper.BuildURL(query)).Int("target", target).Msg("starting scrape")
	res := controller.Run(runCtx, target)
	logSessionCookies(log, doer)

	summary := scrapeSummary{Found: len(res.Offers), Stop: res.Stop}
	qc := query.Context()

	if len(res.Offers) > 0 {
		if err := writeOffers(ctx, s.OutputOptions, previewOffers(res.Offers, qc)); err != nil {
			return err
		}
	}

	if st != nil && len(res.Offers) > 0 {
		stats := st.SaveMany(runCtx, res.Offers, qc)
		summary.Saved = stats.Saved
		summary.Duplicates = stats.Duplicates
		summary.Failed = stats.Failed
		summary.Published = publishOffers(ctx, log, stats.Stored)
	}

	reportStop(ctx, res)
	_, err = fmt.Fprintln(ctx.Err, summary.String())
	return err
}

// cooldownCache prefers memcached so a block survives across runs, and
// falls back to an in-process cache.
func cooldownCache(cfg config.Config, log zerolog.Logger) cache.Service {
	if cfg.MemcacheAddr == "" {
		return cache.NewMemory()
	}
	mc := cache.NewMemcache(cfg.MemcacheAddr)
	if err := mc.Ping(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("memcached unavailable; block cooldown limited to this run")
		return cache.NewMemory()
	}
	return mc
}

func logSessionCookies(log zerolog.Logger, doer scraper.Doer) {
	client, ok := doer.(*network.Client)
	if !ok || log.GetLevel() > zerolog.DebugLevel {
		return
	}
	for _, cookie := range client.Cookies(scraper.BaseURL) {
		log.Debug().Str("name", cookie.Name).Str("domain", cookie.Domain).Msg("session cookie")
	}
}

func previewOffers(recs []models.JobRecord, qc models.QueryContext) []models.StoredOffer {
	out := make([]models.StoredOffer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.StoredOffer{JobRecord: rec, SearchCity: qc.City, SearchDistance: qc.Distance})
	}
	return out
}

func publishOffers(ctx *Context, log zerolog.Logger, offers []models.StoredOffer) int {
	if len(offers) == 0 {
		return 0
	}
	pub, err := ctx.openPublisher(ctx.Ctx())
	if err != nil {
		log.Warn().Err(err).Msg("offer feed unavailable; new offers not announced")
		return 0
	}
	defer pub.Close()

	n, err := pub.Publish(ctx.Ctx(), offers)
	if err != nil {
		log.Warn().Err(err).Int("published", n).Msg("announcing new offers failed")
	}
	return n
}

// reportStop explains to the user why a run ended early.
func reportStop(ctx *Context, res scraper.Result) {
	if ctx.UI == nil {
		return
	}

	var reqErr *scraper.RequestError
	switch {
	case errors.As(res.Err, &reqErr) && reqErr.Kind == scraper.KindCooldown:
		ctx.UI.Warnf("The site blocked an earlier request; waiting for the cooldown to expire before trying again.")
	case errors.As(res.Err, &reqErr) && reqErr.Blocked():
		ctx.UI.Warnf("The site refused the request (HTTP %d). Try again later or configure proxies.", reqErr.StatusCode)
	case res.Stop == scraper.StopFetchFailed:
		ctx.UI.Warnf("Stopped after a failed request: %v", res.Err)
	case res.Stop == scraper.StopLayoutMismatch, res.Stop == scraper.StopEmptyContainer, res.Stop == scraper.StopExtractionFailed:
		ctx.UI.Warnf("The results page did not look as expected (%s); the page was saved for inspection.", res.Stop)
	case res.Stop == scraper.StopNoResults:
		ctx.UI.Infof("No offers match this search.")
	}

	if res.SoftBlocked && len(res.Offers) == 0 {
		ctx.UI.Warnf("The site may be blocking automated requests; zero results could be caused by a block.")
	}
}
