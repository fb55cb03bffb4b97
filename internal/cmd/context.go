package cmd

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/config"
	"github.com/Matiyaa/find-a-workinator/internal/models"
	"github.com/Matiyaa/find-a-workinator/internal/network"
	"github.com/Matiyaa/find-a-workinator/internal/publish"
	"github.com/Matiyaa/find-a-workinator/internal/scraper"
	"github.com/Matiyaa/find-a-workinator/internal/store"
	"github.com/Matiyaa/find-a-workinator/internal/ui"
)

type Context struct {
	Base       context.Context
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode

	// Test seams. Nil means the real implementation.
	OpenStore     func(ctx context.Context) (store.Store, error)
	NewDoer       func(cfg models.ScraperConfig, rotator *network.Rotator) (scraper.Doer, error)
	OpenPublisher func(ctx context.Context) (publish.Publisher, error)
}

// Ctx returns the run context, falling back to Background.
func (c *Context) Ctx() context.Context {
	if c.Base != nil {
		return c.Base
	}
	return context.Background()
}

func (c *Context) openStore(ctx context.Context) (store.Store, error) {
	if c.OpenStore != nil {
		return c.OpenStore(ctx)
	}
	return store.Open(ctx, c.databaseDSN(), c.Logger)
}

// databaseDSN falls back to the offers file next to the config.
func (c *Context) databaseDSN() string {
	dir := c.ConfigDir
	if dir == "" {
		if resolved, err := config.ConfigDir(); err == nil {
			dir = resolved
		}
	}
	return c.Config.DatabaseDSN(dir)
}

func (c *Context) newDoer(cfg models.ScraperConfig, rotator *network.Rotator) (scraper.Doer, error) {
	if c.NewDoer != nil {
		return c.NewDoer(cfg, rotator)
	}
	client, err := network.NewClient(cfg, rotator)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// openPublisher returns a Redis publisher when redis_url is set and a no-op
// publisher otherwise.
func (c *Context) openPublisher(ctx context.Context) (publish.Publisher, error) {
	if c.OpenPublisher != nil {
		return c.OpenPublisher(ctx)
	}
	if c.Config.RedisURL == "" {
		return publish.Nop{}, nil
	}
	p, err := publish.NewRedisPublisher(ctx, c.Config.RedisURL, c.Config.RedisStream, c.Logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}
