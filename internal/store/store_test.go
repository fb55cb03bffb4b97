package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matiyaa/find-a-workinator/internal/export"
	"github.com/Matiyaa/find-a-workinator/internal/models"
)

func record(id, company, position, city string) models.JobRecord {
	rec := models.NewJobRecord()
	rec.OfferID = id
	rec.Company = company
	rec.Position = position
	rec.City = city
	rec.OfferLink = "https://www.pracuj.pl/praca/oferta," + id
	return rec
}

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
}

func newTestMemory() *Memory {
	m := NewMemory(zerolog.Nop())
	m.now = steppingClock()
	return m
}

var qc = models.QueryContext{City: "Warszawa", Distance: 10}

func TestSaveFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	outcome, err := m.Save(ctx, record("1", "Acme", "Go Developer", "Warszawa"), qc)
	require.NoError(t, err)
	assert.Equal(t, Saved, outcome)

	outcome, err = m.Save(ctx, record("1", "Other", "Changed", "Kraków"), models.QueryContext{})
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)

	got, ok, err := m.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Warszawa", got.SearchCity)
	assert.Equal(t, 10, got.SearchDistance)
	assert.False(t, got.DateScraped.IsZero())
}

func TestExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	exists, err := m.Exists(ctx, "1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = m.Save(ctx, record("1", "Acme", "Go Developer", "Warszawa"), qc)
	require.NoError(t, err)

	exists, err = m.Exists(ctx, "1")
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := m.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, ok, err := m.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveWithoutOfferIDKeysOnLink(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	rec := record(models.NotAvailable, "Acme", "Analyst", "Gdańsk")
	rec.OfferLink = "https://www.pracuj.pl/praca/analyst"
	outcome, err := m.Save(ctx, rec, qc)
	require.NoError(t, err)
	assert.Equal(t, Saved, outcome)

	exists, err := m.Exists(ctx, "link:https://www.pracuj.pl/praca/analyst")
	require.NoError(t, err)
	assert.True(t, exists)

	outcome, err = m.Save(ctx, rec, qc)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)
}

func TestSaveRejectsKeylessRecord(t *testing.T) {
	m := newTestMemory()
	rec := models.NewJobRecord()
	_, err := m.Save(context.Background(), rec, qc)
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestSaveManyCounts(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	_, err := m.Save(ctx, record("2", "Acme", "SRE", "Warszawa"), qc)
	require.NoError(t, err)

	recs := []models.JobRecord{
		record("1", "Acme", "Go Developer", "Warszawa"),
		record("2", "Acme", "SRE", "Warszawa"),
		record("3", "Beta", "Tester", "Kraków"),
		record("3", "Beta", "Tester", "Kraków"),
		models.NewJobRecord(),
	}
	stats := m.SaveMany(ctx, recs, qc)

	assert.Equal(t, 2, stats.Saved)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Stored, 2)
	assert.Equal(t, "1", stats.Stored[0].OfferID)
	assert.Equal(t, "3", stats.Stored[1].OfferID)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	seed := []models.JobRecord{
		record("1", "Acme Software", "Senior Go Developer", "Warszawa"),
		record("2", "acme labs", "Python Developer", "Warszawa, Mokotów"),
		record("3", "Beta", "Go Engineer", "warszawa"),
		record("4", "Gamma", "Tester", "Kraków"),
	}
	seed[0].DateAdded = "2025-06-01"
	seed[1].DateAdded = "2025-06-10"
	seed[2].DateAdded = "2025-06-20"
	for _, rec := range seed {
		_, err := m.Save(ctx, rec, qc)
		require.NoError(t, err)
	}

	cases := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"all newest first", Filters{}, []string{"4", "3", "2", "1"}},
		{"company substring any case", Filters{Company: "ACME"}, []string{"2", "1"}},
		{"position substring", Filters{Position: "developer"}, []string{"2", "1"}},
		{"city exact ignoring case", Filters{City: " WARSZAWA "}, []string{"3", "1"}},
		{"anded", Filters{Company: "acme", City: "Warszawa"}, []string{"1"}},
		{"date from", Filters{DateFrom: "2025-06-10"}, []string{"3", "2"}},
		{"date range inclusive", Filters{DateFrom: "2025-06-01", DateTo: "2025-06-10"}, []string{"2", "1"}},
		{"no match", Filters{Company: "zeta"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offers, err := m.List(ctx, tc.filters, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, keys(offers))
		})
	}
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	for i := 1; i <= 5; i++ {
		_, err := m.Save(ctx, record(fmt.Sprint(i), "Acme", "Dev", "Warszawa"), qc)
		require.NoError(t, err)
	}

	offers, err := m.List(ctx, Filters{}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3"}, keys(offers))

	offers, err = m.List(ctx, Filters{}, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "offers.json")

	st, err := Open(ctx, "file:"+path, zerolog.Nop())
	require.NoError(t, err)
	outcome, err := st.Save(ctx, record("1", "Acme", "Go Developer", "Warszawa"), qc)
	require.NoError(t, err)
	assert.Equal(t, Saved, outcome)
	require.NoError(t, st.Close())

	reopened, err := OpenFile(path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Go Developer", got.Position)

	outcome, err = reopened.Save(ctx, record("1", "Acme", "Go Developer", "Warszawa"), qc)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)

	deleted, err := reopened.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, deleted)

	offers, err := ReadOffers(path)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestFileStoreRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	m.persist = func([]models.StoredOffer) error { return errors.New("disk full") }

	_, err := m.Save(ctx, record("1", "Acme", "Dev", "Warszawa"), qc)
	require.Error(t, err)

	exists, err := m.Exists(ctx, "1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadOffersAllowMissing(t *testing.T) {
	offers, err := ReadOffersAllowMissing(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestOpenRejectsUnknownDSN(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/db", zerolog.Nop())
	assert.Error(t, err)

	_, err = Open(context.Background(), "", zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoDatabase)

	st, err := Open(context.Background(), "memory", zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, st)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "offers.json")

	st, err := Open(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	_, err = st.Save(ctx, record("1", "Acme", "Go Developer", "Warszawa"), qc)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()
	exists, err := st.Exists(ctx, "1")
	require.NoError(t, err)
	assert.True(t, exists)
}

// Two stores on one file stand in for two independent runs.
func TestFileStoreSharedBetweenInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offers.json")

	a, err := OpenFile(path, zerolog.Nop())
	require.NoError(t, err)
	b, err := OpenFile(path, zerolog.Nop())
	require.NoError(t, err)

	outcome, err := a.Save(ctx, record("same", "Acme", "Dev", "Warszawa"), qc)
	require.NoError(t, err)
	assert.Equal(t, Saved, outcome)
	outcome, err = b.Save(ctx, record("same", "Acme", "Dev", "Warszawa"), qc)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)

	_, err = a.Save(ctx, record("onlyA", "Acme", "Dev", "Warszawa"), qc)
	require.NoError(t, err)
	_, err = b.Save(ctx, record("onlyB", "Beta", "Dev", "Kraków"), qc)
	require.NoError(t, err)

	offers, err := ReadOffers(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"same", "onlyA", "onlyB"}, keys(offers))

	deleted, err := b.Delete(ctx, "onlyA")
	require.NoError(t, err)
	assert.True(t, deleted)
	exists, err := a.Exists(ctx, "onlyA")
	require.NoError(t, err)
	assert.False(t, exists)
}

// saveConcurrently saves one key from n goroutines and counts outcomes.
func saveConcurrently(t *testing.T, n int, stores func(i int) Store) (saved, duplicates int) {
	t.Helper()
	ctx := context.Background()
	outcomes := make(chan SaveOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := stores(i).Save(ctx, record("race", "Acme", "Dev", "Warszawa"), qc)
			assert.NoError(t, err)
			outcomes <- outcome
		}(i)
	}
	wg.Wait()
	close(outcomes)
	for outcome := range outcomes {
		switch outcome {
		case Saved:
			saved++
		case Duplicate:
			duplicates++
		}
	}
	return saved, duplicates
}

func TestMemorySaveConcurrent(t *testing.T) {
	m := newTestMemory()
	saved, duplicates := saveConcurrently(t, 32, func(int) Store { return m })
	assert.Equal(t, 1, saved)
	assert.Equal(t, 31, duplicates)
}

func TestFileSaveConcurrentInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.json")
	instances := make([]*File, 8)
	for i := range instances {
		f, err := OpenFile(path, zerolog.Nop())
		require.NoError(t, err)
		instances[i] = f
	}

	saved, duplicates := saveConcurrently(t, 16, func(i int) Store { return instances[i%len(instances)] })
	assert.Equal(t, 1, saved)
	assert.Equal(t, 15, duplicates)

	offers, err := ReadOffers(path)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	var buf bytes.Buffer
	_, err := Export(ctx, m, &buf, Filters{}, export.FormatCSV)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Zero(t, buf.Len())

	_, err = m.Save(ctx, record("1", "Acme", "Go Developer", "Warszawa"), qc)
	require.NoError(t, err)
	_, err = m.Save(ctx, record("2", "Beta", "Tester", "Kraków"), qc)
	require.NoError(t, err)

	n, err := Export(ctx, m, &buf, Filters{City: "kraków"}, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(export.Header(), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2,Beta,Tester,Kraków,"))
}

func TestListQuery(t *testing.T) {
	query, args := listQuery(Filters{Company: "50%_off", City: "Kraków", DateFrom: "2025-01-01"}, 0, -1)

	assert.Contains(t, query, `company ILIKE $1 ESCAPE '\'`)
	assert.Contains(t, query, `lower(city) = $2`)
	assert.Contains(t, query, `date_added <> 'N/A'`)
	assert.Contains(t, query, `date_added >= $3`)
	assert.Contains(t, query, `ORDER BY date_scraped DESC`)
	assert.Contains(t, query, `LIMIT $4 OFFSET $5`)
	assert.Equal(t, []any{`%50\%\_off%`, "kraków", "2025-01-01", DefaultListLimit, 0}, args)
}

func keys(offers []models.StoredOffer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.OfferID)
	}
	return out
}
