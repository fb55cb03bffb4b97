package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matiyaa/find-a-workinator/internal/models"
	"github.com/Matiyaa/find-a-workinator/internal/store"
)

func seedOffers(t *testing.T, env *testEnv) {
	t.Helper()
	recs := []struct {
		id, company, position, city, added string
	}{
		{"1", "Acme Software", "Go Developer", "Warszawa", "2025-06-01"},
		{"2", "Beta", "Python Developer", "Kraków", "2025-06-15"},
		{"3", "Acme Labs", "Tester", "Warszawa", models.NotAvailable},
	}
	for _, r := range recs {
		rec := models.NewJobRecord()
		rec.OfferID, rec.Company, rec.Position, rec.City, rec.DateAdded = r.id, r.company, r.position, r.city, r.added
		rec.OfferLink = "https://www.pracuj.pl/praca/oferta," + r.id
		_, err := env.store.Save(context.Background(), rec, models.QueryContext{City: r.city})
		require.NoError(t, err)
	}
}

func TestOffersListFilters(t *testing.T) {
	env := newTestEnv(t)
	seedOffers(t, env)

	cmd := &OffersListCmd{FilterOptions: FilterOptions{Company: "acme", City: "warszawa"}, Limit: 100}
	require.NoError(t, cmd.Run(env.ctx))

	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "offer_id\t"))
	assert.Contains(t, env.err.String(), "offers: 2")
}

func TestOffersListDateRange(t *testing.T) {
	env := newTestEnv(t)
	seedOffers(t, env)

	cmd := &OffersListCmd{FilterOptions: FilterOptions{From: "2025-06-10"}, Limit: 100}
	require.NoError(t, cmd.Run(env.ctx))
	assert.Contains(t, env.out.String(), "Python Developer")
	assert.NotContains(t, env.out.String(), "Tester")
}

func TestOffersListRejectsBadDates(t *testing.T) {
	env := newTestEnv(t)

	err := (&OffersListCmd{FilterOptions: FilterOptions{From: "21.06.2025"}}).Run(env.ctx)
	assert.ErrorContains(t, err, "--from must be YYYY-MM-DD")

	err = (&OffersListCmd{FilterOptions: FilterOptions{From: "2025-07-01", To: "2025-06-01"}}).Run(env.ctx)
	assert.Error(t, err)
}

func TestOffersShow(t *testing.T) {
	env := newTestEnv(t)
	seedOffers(t, env)
	env.ctx.JSONOutput = true

	require.NoError(t, (&OffersShowCmd{ID: "2"}).Run(env.ctx))

	var got models.StoredOffer
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &got))
	assert.Equal(t, "Beta", got.Company)
	assert.Equal(t, "Kraków", got.SearchCity)

	assert.ErrorContains(t, (&OffersShowCmd{ID: "404"}).Run(env.ctx), "not found")
}

func TestOffersDelete(t *testing.T) {
	env := newTestEnv(t)
	seedOffers(t, env)

	require.NoError(t, (&OffersDeleteCmd{ID: "1"}).Run(env.ctx))
	assert.Contains(t, env.out.String(), "Deleted offer 1.")

	exists, err := env.store.Exists(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, (&OffersDeleteCmd{ID: "1"}).Run(env.ctx))
	assert.Contains(t, env.err.String(), "Offer 1 not found.")
}

func TestOffersExport(t *testing.T) {
	env := newTestEnv(t)
	seedOffers(t, env)
	path := filepath.Join(t.TempDir(), "offers.csv")

	cmd := &OffersExportCmd{FilterOptions: FilterOptions{Position: "developer"}, Output: path}
	require.NoError(t, cmd.Run(env.ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "offer_id,company,position,city,salary,offer_link,date_added,date_scraped,search_city,search_distance", lines[0])
	assert.Contains(t, env.out.String(), "Exported 2 offers")
}

func TestOffersExportNothingWritesNoFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "offers.csv")

	err := (&OffersExportCmd{Output: path}).Run(env.ctx)
	assert.ErrorIs(t, err, store.ErrNothingToExport)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOffersExportFormatFromExtension(t *testing.T) {
	cmd := &OffersExportCmd{Output: "offers.json"}
	f, err := cmd.format()
	require.NoError(t, err)
	assert.Equal(t, "json", string(f))

	cmd = &OffersExportCmd{Output: "offers.txt"}
	f, err = cmd.format()
	require.NoError(t, err)
	assert.Equal(t, "csv", string(f))
}
