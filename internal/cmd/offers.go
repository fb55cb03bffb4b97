package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Matiyaa/find-a-workinator/internal/export"
	"github.com/Matiyaa/find-a-workinator/internal/models"
	"github.com/Matiyaa/find-a-workinator/internal/store"
)

type OffersCmd struct {
	List   OffersListCmd   `cmd:"" help:"List stored offers, newest first."`
	Show   OffersShowCmd   `cmd:"" help:"Show one stored offer."`
	Delete OffersDeleteCmd `cmd:"" help:"Delete one stored offer."`
	Export OffersExportCmd `cmd:"" help:"Export stored offers to a file."`
}

// FilterOptions map onto store.Filters.
type FilterOptions struct {
	Company  string `help:"Company name contains (case-insensitive)."`
	Position string `help:"Position contains (case-insensitive)."`
	City     string `help:"City equals (case-insensitive)."`
	From     string `help:"Added on or after this date (YYYY-MM-DD)."`
	To       string `help:"Added on or before this date (YYYY-MM-DD)."`
}

func (f FilterOptions) filters() (store.Filters, error) {
	for _, d := range []struct{ flag, value string }{{"--from", f.From}, {"--to", f.To}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.value); err != nil {
			return store.Filters{}, fmt.Errorf("%s must be YYYY-MM-DD, got %q", d.flag, d.value)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return store.Filters{}, fmt.Errorf("--from %s is after --to %s", f.From, f.To)
	}
	return store.Filters{
		Company:  strings.TrimSpace(f.Company),
		Position: strings.TrimSpace(f.Position),
		City:     strings.TrimSpace(f.City),
		DateFrom: f.From,
		DateTo:   f.To,
	}, nil
}

type OffersListCmd struct {
	FilterOptions
	Limit  int `help:"Maximum offers to show." default:"100"`
	Offset int `help:"Skip this many offers."`
	OutputOptions
}

func (c *OffersListCmd) Run(ctx *Context) error {
	filters, err := c.filters()
	if err != nil {
		return err
	}
	if c.Limit < 0 || c.Offset < 0 {
		return fmt.Errorf("--limit and --offset must not be negative")
	}

	st, err := ctx.openStore(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	offers, err := st.List(ctx.Ctx(), filters, c.Limit, c.Offset)
	if err != nil {
		return err
	}
	if err := writeOffers(ctx, c.OutputOptions, offers); err != nil {
		return err
	}
	_, err = fmt.Fprintf(ctx.Err, "offers: %d\n", len(offers))
	return err
}

type OffersShowCmd struct {
	ID string `arg:"" help:"Offer id (or link:<url> for offers without one)."`
}

func (c *OffersShowCmd) Run(ctx *Context) error {
	st, err := ctx.openStore(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	offer, ok, err := st.Get(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("offer %s not found", c.ID)
	}

	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(offer)
	}
	return export.WriteOffers(ctx.Out, []models.StoredOffer{offer}, export.FormatMarkdown, export.WriteOptions{})
}

type OffersDeleteCmd struct {
	ID string `arg:"" help:"Offer id to delete."`
}

func (c *OffersDeleteCmd) Run(ctx *Context) error {
	st, err := ctx.openStore(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	deleted, err := st.Delete(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}
	if !deleted {
		ctx.UI.Warnf("Offer %s not found.", c.ID)
		return nil
	}
	ctx.UI.Successf("Deleted offer %s.", c.ID)
	return nil
}

type OffersExportCmd struct {
	FilterOptions
	Output string `name:"output" short:"o" required:"" help:"File to write."`
	Format string `help:"File format: csv, tsv, json, md (default: from extension, else csv)." enum:",csv,tsv,json,md" default:""`
}

func (c *OffersExportCmd) Run(ctx *Context) error {
	filters, err := c.filters()
	if err != nil {
		return err
	}
	format, err := c.format()
	if err != nil {
		return err
	}

	st, err := ctx.openStore(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var buf bytes.Buffer
	n, err := store.Export(ctx.Ctx(), st, &buf, filters, format)
	if err != nil {
		if errors.Is(err, store.ErrNothingToExport) {
			return fmt.Errorf("nothing written to %s: %w", c.Output, err)
		}
		return err
	}
	if err := os.WriteFile(c.Output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if n == store.ExportLimit {
		ctx.UI.Warnf("Export capped at %d offers.", store.ExportLimit)
	}
	ctx.UI.Successf("Exported %d offers to %s.", n, c.Output)
	return nil
}

func (c *OffersExportCmd) format() (export.Format, error) {
	if c.Format != "" {
		return export.ParseFormat(c.Format)
	}
	if f, ok := export.FormatFromPath(c.Output); ok {
		return f, nil
	}
	return export.FormatCSV, nil
}
