package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

// File keeps offers in a JSON array at path. Writers serialise on an
// exclusive lock on <path>.lock and reload the file inside it, so separate
// processes sharing one file still insert each key at most once.
type File struct {
	path string
	log  zerolog.Logger
	now  func() time.Time
	mu   sync.Mutex
}

// OpenFile returns a store backed by path. The file is created on first
// write; a missing file is an empty store.
func OpenFile(path string, log zerolog.Logger) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store file path is required")
	}
	offers, err := ReadOffersAllowMissing(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	f := &File{
		path: path,
		log:  log.With().Str("component", "store").Str("path", path).Logger(),
		now:  time.Now,
	}
	f.log.Debug().Int("offers", len(offers)).Msg("file store opened")
	return f, nil
}

// load reads the current file into a map-backed store whose writes go
// straight back to disk.
func (f *File) load() (*Memory, error) {
	offers, err := ReadOffersAllowMissing(f.path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.path, err)
	}
	m := NewMemory(f.log)
	m.now = f.now
	for _, offer := range offers {
		if offer.OfferID == "" {
			continue
		}
		if _, ok := m.offers[offer.OfferID]; ok {
			continue
		}
		m.offers[offer.OfferID] = offer
	}
	m.persist = func(all []models.StoredOffer) error {
		return WriteOffers(f.path, all)
	}
	return m, nil
}

// locked runs fn against a fresh snapshot while holding the file lock.
func (f *File) locked(ctx context.Context, fn func(m *Memory) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	unlock, err := lockFile(ctx, f.path+".lock")
	if err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() {
		if err := unlock(); err != nil {
			f.log.Warn().Err(err).Msg("release store lock")
		}
	}()

	m, err := f.load()
	if err != nil {
		return err
	}
	return fn(m)
}

// Reads skip the lock; WriteOffers replaces the file atomically.
func (f *File) Exists(ctx context.Context, id string) (bool, error) {
	m, err := f.load()
	if err != nil {
		return false, err
	}
	return m.Exists(ctx, id)
}

func (f *File) Save(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (SaveOutcome, error) {
	_, outcome, err := f.save(ctx, rec, qc)
	return outcome, err
}

func (f *File) save(ctx context.Context, rec models.JobRecord, qc models.QueryContext) (models.StoredOffer, SaveOutcome, error) {
	var (
		stored  models.StoredOffer
		outcome SaveOutcome
	)
	err := f.locked(ctx, func(m *Memory) error {
		var err error
		stored, outcome, err = m.save(ctx, rec, qc)
		return err
	})
	return stored, outcome, err
}

// SaveMany holds the lock for the whole batch.
func (f *File) SaveMany(ctx context.Context, recs []models.JobRecord, qc models.QueryContext) SaveStats {
	var stats SaveStats
	err := f.locked(ctx, func(m *Memory) error {
		stats = m.SaveMany(ctx, recs, qc)
		return nil
	})
	if err != nil {
		f.log.Error().Err(err).Int("records", len(recs)).Msg("save batch failed")
		return SaveStats{Failed: len(recs)}
	}
	return stats
}

func (f *File) Get(ctx context.Context, id string) (models.StoredOffer, bool, error) {
	m, err := f.load()
	if err != nil {
		return models.StoredOffer{}, false, err
	}
	return m.Get(ctx, id)
}

func (f *File) List(ctx context.Context, filters Filters, limit, offset int) ([]models.StoredOffer, error) {
	m, err := f.load()
	if err != nil {
		return nil, err
	}
	return m.List(ctx, filters, limit, offset)
}

func (f *File) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := f.locked(ctx, func(m *Memory) error {
		var err error
		deleted, err = m.Delete(ctx, id)
		return err
	})
	return deleted, err
}

// Close is a no-op; every write is already on disk.
func (f *File) Close() error {
	return nil
}

// ReadOffers reads a JSON array of stored offers from path.
func ReadOffers(path string) ([]models.StoredOffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.StoredOffer{}, nil
	}

	var offers []models.StoredOffer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, err
	}
	if offers == nil {
		return []models.StoredOffer{}, nil
	}
	return offers, nil
}

// ReadOffersAllowMissing treats a missing file as an empty store.
func ReadOffersAllowMissing(path string) ([]models.StoredOffer, error) {
	offers, err := ReadOffers(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.StoredOffer{}, nil
		}
		return nil, err
	}
	return offers, nil
}

// WriteOffers writes offers as pretty JSON, replacing path atomically.
func WriteOffers(path string, offers []models.StoredOffer) error {
	if offers == nil {
		offers = []models.StoredOffer{}
	}
	data, err := json.MarshalIndent(offers, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
