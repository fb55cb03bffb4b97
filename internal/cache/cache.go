// Package cache holds short-lived flags shared between scrape runs, such as
// the cooldown a hard block imposes on the target site.
package cache

import (
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Service is a minimal key/value cache with expiry.
type Service interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, expiration time.Duration) error
	Delete(key string) error
}
