package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

// Memory keeps offers in a map. With a persist hook set it doubles as the
// file backend.
type Memory struct {
	mu      sync.Mutex
	offers  map[string]models.StoredOffer
	now     func() time.Time
	log     zerolog.Logger
	persist func([]models.StoredOffer) error
}

func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{
		offers: map[string]models.StoredOffer{},
		now:    time.Now,
		log:    log.With().Str("component", "store").Logger(),
	}
}

func (m *Memory) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.offers[id]
	return ok, nil
}

func (m *Memory) Save(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (SaveOutcome, error) {
	_, outcome, err := m.save(ctx, rec, qc)
	return outcome, err
}

func (m *Memory) save(_ context.Context, rec models.JobRecord, qc models.QueryContext) (models.StoredOffer, SaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := newStoredOffer(rec, qc, m.now())
	if err != nil {
		return models.StoredOffer{}, 0, err
	}
	if _, ok := m.offers[stored.OfferID]; ok {
		return models.StoredOffer{}, Duplicate, nil
	}

	m.offers[stored.OfferID] = stored
	if err := m.flush(); err != nil {
		delete(m.offers, stored.OfferID)
		return models.StoredOffer{}, 0, err
	}
	return stored, Saved, nil
}

func (m *Memory) SaveMany(ctx context.Context, recs []models.JobRecord, qc models.QueryContext) SaveStats {
	return saveEach(ctx, m.log, m.save, recs, qc)
}

func (m *Memory) Get(_ context.Context, id string) (models.StoredOffer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offer, ok := m.offers[id]
	return offer, ok, nil
}

func (m *Memory) List(_ context.Context, f Filters, limit, offset int) ([]models.StoredOffer, error) {
	m.mu.Lock()
	matched := make([]models.StoredOffer, 0, len(m.offers))
	for _, offer := range m.offers {
		if f.Match(offer) {
			matched = append(matched, offer)
		}
	}
	m.mu.Unlock()

	sortNewestFirst(matched)
	return page(matched, limit, offset), nil
}

func (m *Memory) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offer, ok := m.offers[id]
	if !ok {
		return false, nil
	}
	delete(m.offers, id)
	if err := m.flush(); err != nil {
		m.offers[id] = offer
		return false, err
	}
	return true, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flush()
}

// flush hands a snapshot to the persist hook. Callers hold mu.
func (m *Memory) flush() error {
	if m.persist == nil {
		return nil
	}
	all := make([]models.StoredOffer, 0, len(m.offers))
	for _, offer := range m.offers {
		all = append(all, offer)
	}
	sortNewestFirst(all)
	return m.persist(all)
}
