// Package store persists scraped offers and answers questions about them.
// Every backend deduplicates on the offer key: the first write wins and
// later saves of the same key are reported as duplicates.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

const (
	DefaultListLimit = 100
	ExportLimit      = 10000
)

var (
	ErrNothingToExport = errors.New("store: nothing to export")
	ErrNoKey           = errors.New("store: offer has neither id nor link")
	ErrNoDatabase      = errors.New("store: no database configured")
)

// SaveOutcome is the result of saving a single record.
type SaveOutcome int

const (
	Saved SaveOutcome = iota + 1
	Duplicate
)

func (o SaveOutcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// SaveStats summarises a SaveMany call. Stored holds the offers that were
// new, in input order.
type SaveStats struct {
	Saved      int
	Duplicates int
	Failed     int
	Stored     []models.StoredOffer
}

// Filters narrow List results. Empty fields match everything.
type Filters struct {
	Company  string
	Position string
	City     string
	DateFrom string
	DateTo   string
}

// Lister is the read side Export needs.
type Lister interface {
	List(ctx context.Context, f Filters, limit, offset int) ([]models.StoredOffer, error)
}

// Store is a deduplicating offer repository.
type Store interface {
	Lister
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (SaveOutcome, error)
	SaveMany(ctx context.Context, recs []models.JobRecord, qc models.QueryContext) SaveStats
	Get(ctx context.Context, id string) (models.StoredOffer, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// Open picks a backend from dsn: postgres:// or postgresql:// URLs use
// Postgres, "file:<path>" a JSON file and "memory" a process-local map
// that is gone when the process exits.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, ErrNoDatabase
	case dsn == "memory":
		return NewMemory(log), nil
	case strings.HasPrefix(dsn, "file:"):
		st, err := OpenFile(strings.TrimPrefix(dsn, "file:"), log)
		if err != nil {
			return nil, err
		}
		return st, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		st, err := OpenPostgres(ctx, dsn, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported database %q (want postgres://, file:<path> or memory)", dsn)
	}
}

// newStoredOffer stamps rec for persistence. The key replaces a missing
// offer id so the row stays addressable.
func newStoredOffer(rec models.JobRecord, qc models.QueryContext, now time.Time) (models.StoredOffer, error) {
	key := rec.Key()
	if key == "" {
		return models.StoredOffer{}, ErrNoKey
	}
	rec.OfferID = key
	rec.DateScraped = now.UTC()
	return models.StoredOffer{
		JobRecord:      rec,
		SearchCity:     qc.City,
		SearchDistance: qc.Distance,
	}, nil
}

type saveFunc func(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (models.StoredOffer, SaveOutcome, error)

// saveEach saves recs in order, counting failures without stopping.
func saveEach(ctx context.Context, log zerolog.Logger, save saveFunc, recs []models.JobRecord, qc models.QueryContext) SaveStats {
	var stats SaveStats
	for _, rec := range recs {
		stored, outcome, err := save(ctx, rec, qc)
		if err != nil {
			stats.Failed++
			log.Error().Err(err).Str("offer_id", rec.OfferID).Str("link", rec.OfferLink).Msg("failed to save offer")
			continue
		}
		switch outcome {
		case Saved:
			stats.Saved++
			stats.Stored = append(stats.Stored, stored)
		case Duplicate:
			stats.Duplicates++
			log.Debug().Str("offer_id", rec.OfferID).Msg("offer already stored")
		}
	}
	log.Info().
		Int("saved", stats.Saved).
		Int("duplicates", stats.Duplicates).
		Int("failed", stats.Failed).
		Msg("offers persisted")
	return stats
}

// Match reports whether o satisfies every non-empty filter.
func (f Filters) Match(o models.StoredOffer) bool {
	if f.Company != "" && !containsFold(o.Company, f.Company) {
		return false
	}
	if f.Position != "" && !containsFold(o.Position, f.Position) {
		return false
	}
	if city := normalizeCity(f.City); city != "" && normalizeCity(o.City) != city {
		return false
	}
	if f.DateFrom != "" || f.DateTo != "" {
		if !models.Present(o.DateAdded) {
			return false
		}
		if f.DateFrom != "" && o.DateAdded < f.DateFrom {
			return false
		}
		if f.DateTo != "" && o.DateAdded > f.DateTo {
			return false
		}
	}
	return true
}

func containsFold(value, sub string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(sub)))
}

func normalizeCity(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(value, "\u00a0", " ")), " "))
}

// sortNewestFirst orders offers by scrape time, newest first, breaking
// ties on the key so pagination is stable.
func sortNewestFirst(offers []models.StoredOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		if !offers[i].DateScraped.Equal(offers[j].DateScraped) {
			return offers[i].DateScraped.After(offers[j].DateScraped)
		}
		return offers[i].OfferID < offers[j].OfferID
	})
}

func page(offers []models.StoredOffer, limit, offset int) []models.StoredOffer {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(offers) {
		return []models.StoredOffer{}
	}
	end := offset + limit
	if end > len(offers) {
		end = len(offers)
	}
	return offers[offset:end]
}
