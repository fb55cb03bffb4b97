package models

import (
	"strings"
	"time"
)

// NotAvailable marks a field that could not be extracted.
const NotAvailable = "N/A"

// JobRecord is one listing extracted from a result page.
type JobRecord struct {
	OfferID     string    `json:"offer_id"`
	Company     string    `json:"company"`
	Position    string    `json:"position"`
	City        string    `json:"city"`
	Salary      string    `json:"salary"`
	OfferLink   string    `json:"offer_link"`
	DateAdded   string    `json:"date_added"`
	DateScraped time.Time `json:"date_scraped,omitempty"`
}

// NewJobRecord returns a record with every field set to NotAvailable.
func NewJobRecord() JobRecord {
	return JobRecord{
		OfferID:   NotAvailable,
		Company:   NotAvailable,
		Position:  NotAvailable,
		City:      NotAvailable,
		Salary:    NotAvailable,
		OfferLink: NotAvailable,
		DateAdded: NotAvailable,
	}
}

// Valid reports whether position, company and offer link are all present.
func (r JobRecord) Valid() bool {
	return Present(r.Position) && Present(r.Company) && Present(r.OfferLink)
}

// Key returns the identity the store deduplicates on. Records without a
// site offer id fall back to their link.
func (r JobRecord) Key() string {
	if Present(r.OfferID) {
		return r.OfferID
	}
	if Present(r.OfferLink) {
		return "link:" + r.OfferLink
	}
	return ""
}

// Present reports whether value holds real data rather than the sentinel.
func Present(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != NotAvailable
}

// OrNotAvailable returns value, or the sentinel when value is empty.
func OrNotAvailable(value string) string {
	if strings.TrimSpace(value) == "" {
		return NotAvailable
	}
	return value
}

// StoredOffer is the persisted form of a JobRecord.
type StoredOffer struct {
	JobRecord
	SearchCity     string `json:"search_city,omitempty"`
	SearchDistance int    `json:"search_distance,omitempty"`
}
