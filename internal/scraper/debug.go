package scraper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Reasons recorded alongside a captured page.
const (
	ReasonMainAreaNotFound = "main_area_not_found"
	ReasonNoOffers         = "no_offers_in_container"
	ReasonExtraction       = "extraction_failed"
)

// DebugSink receives the raw body of a page the controller could not make
// sense of.
type DebugSink interface {
	Capture(page int, reason string, body []byte)
}

// DirSink writes captured pages as page_<n>_debug_<reason>.html files.
type DirSink struct {
	Dir string
	Log zerolog.Logger
}

func (s DirSink) Capture(page int, reason string, body []byte) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.Log.Error().Err(err).Str("dir", dir).Msg("could not create debug dir")
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("page_%d_debug_%s.html", page, reason))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.Log.Error().Err(err).Str("path", path).Msg("could not save debug page")
		return
	}
	s.Log.Info().Str("path", path).Msg("saved page HTML for inspection")
}

type discardSink struct{}

func (discardSink) Capture(int, string, []byte) {}
