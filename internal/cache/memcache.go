package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcache implements Service on top of a memcached server.
type Memcache struct {
	client *memcache.Client
}

func NewMemcache(addr string) *Memcache {
	client := memcache.New(addr)
	client.Timeout = 2 * time.Second
	return &Memcache{client: client}
}

// Ping checks that the server is reachable.
func (m *Memcache) Ping() error {
	return m.client.Ping()
}

func (m *Memcache) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return item.Value, nil
}

func (m *Memcache) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

func (m *Memcache) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
