package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_offers (
    offer_id        TEXT PRIMARY KEY,
    company         TEXT NOT NULL,
    position        TEXT NOT NULL,
    city            TEXT NOT NULL DEFAULT 'N/A',
    salary          TEXT NOT NULL DEFAULT 'N/A',
    offer_link      TEXT NOT NULL,
    date_added      TEXT NOT NULL DEFAULT 'N/A',
    date_scraped    TIMESTAMPTZ NOT NULL DEFAULT now(),
    search_city     TEXT NOT NULL DEFAULT '',
    search_distance INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_job_offers_company ON job_offers (company);
CREATE INDEX IF NOT EXISTS idx_job_offers_position ON job_offers (position);
CREATE INDEX IF NOT EXISTS idx_job_offers_city ON job_offers (city);
CREATE INDEX IF NOT EXISTS idx_job_offers_date_added ON job_offers (date_added);
CREATE INDEX IF NOT EXISTS idx_job_offers_date_scraped ON job_offers (date_scraped);
`

const offerColumns = `offer_id, company, position, city, salary, offer_link, date_added, date_scraped, search_city, search_distance`

// Postgres stores offers in the job_offers table.
type Postgres struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// OpenPostgres connects, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	p := &Postgres{pool: pool, log: log.With().Str("component", "store").Logger()}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the table and its indexes if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM job_offers WHERE offer_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return exists, nil
}

func (p *Postgres) Save(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (SaveOutcome, error) {
	_, outcome, err := p.save(ctx, rec, qc)
	return outcome, err
}

// save relies on the primary key for atomic check-then-insert. A conflict
// returns no row, which is reported as a duplicate.
func (p *Postgres) save(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (models.StoredOffer, SaveOutcome, error) {
	key := rec.Key()
	if key == "" {
		return models.StoredOffer{}, 0, ErrNoKey
	}
	rec.OfferID = key

	row := p.pool.QueryRow(ctx,
		`INSERT INTO job_offers (offer_id, company, position, city, salary, offer_link, date_added, date_scraped, search_city, search_distance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8, $9)
		 ON CONFLICT (offer_id) DO NOTHING
		 RETURNING date_scraped`,
		rec.OfferID, rec.Company, rec.Position, rec.City, rec.Salary, rec.OfferLink, rec.DateAdded,
		qc.City, qc.Distance,
	)
	if err := row.Scan(&rec.DateScraped); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StoredOffer{}, Duplicate, nil
		}
		return models.StoredOffer{}, 0, fmt.Errorf("insert %s: %w", key, err)
	}

	rec.DateScraped = rec.DateScraped.UTC()
	return models.StoredOffer{JobRecord: rec, SearchCity: qc.City, SearchDistance: qc.Distance}, Saved, nil
}

func (p *Postgres) SaveMany(ctx context.Context, recs []models.JobRecord, qc models.QueryContext) SaveStats {
	return saveEach(ctx, p.log, p.save, recs, qc)
}

func (p *Postgres) Get(ctx context.Context, id string) (models.StoredOffer, bool, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM job_offers WHERE offer_id = $1`, id)
	offer, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StoredOffer{}, false, nil
		}
		return models.StoredOffer{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return offer, true, nil
}

func (p *Postgres) List(ctx context.Context, f Filters, limit, offset int) ([]models.StoredOffer, error) {
	query, args := listQuery(f, limit, offset)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	offers := []models.StoredOffer{}
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM job_offers WHERE offer_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// listQuery builds the filtered, newest-first listing statement.
func listQuery(f Filters, limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Company != "" {
		where = append(where, `company ILIKE `+arg(likePattern(f.Company))+` ESCAPE '\'`)
	}
	if f.Position != "" {
		where = append(where, `position ILIKE `+arg(likePattern(f.Position))+` ESCAPE '\'`)
	}
	if city := normalizeCity(f.City); city != "" {
		where = append(where, `lower(city) = `+arg(city))
	}
	if f.DateFrom != "" || f.DateTo != "" {
		where = append(where, `date_added <> '`+models.NotAvailable+`'`)
	}
	if f.DateFrom != "" {
		where = append(where, `date_added >= `+arg(f.DateFrom))
	}
	if f.DateTo != "" {
		where = append(where, `date_added <= `+arg(f.DateTo))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + offerColumns + ` FROM job_offers`)
	if len(where) > 0 {
		b.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	b.WriteString(` ORDER BY date_scraped DESC, offer_id ASC`)
	b.WriteString(` LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset))
	return b.String(), args
}

// likePattern wraps value for a substring match, escaping LIKE wildcards.
func likePattern(value string) string {
	value = strings.TrimSpace(value)
	value = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	return "%" + value + "%"
}

func scanOffer(row pgx.Row) (models.StoredOffer, error) {
	var o models.StoredOffer
	err := row.Scan(
		&o.OfferID, &o.Company, &o.Position, &o.City, &o.Salary, &o.OfferLink,
		&o.DateAdded, &o.DateScraped, &o.SearchCity, &o.SearchDistance,
	)
	if err != nil {
		return models.StoredOffer{}, err
	}
	o.DateScraped = o.DateScraped.UTC()
	return o, nil
}
