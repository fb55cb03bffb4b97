package models

import "time"

// ScraperConfig contains runtime options for one scrape session's transport.
type ScraperConfig struct {
	Proxies           []string
	Timeout           time.Duration
	RequestsPerMinute int
	UserAgent         string
}
