package store

import (
	"context"
	"io"

	"github.com/Matiyaa/find-a-workinator/internal/export"
)

// Export writes up to ExportLimit offers matching f to w. An empty result
// is ErrNothingToExport and nothing is written.
func Export(ctx context.Context, l Lister, w io.Writer, f Filters, format export.Format) (int, error) {
	offers, err := l.List(ctx, f, ExportLimit, 0)
	if err != nil {
		return 0, err
	}
	if len(offers) == 0 {
		return 0, ErrNothingToExport
	}
	if err := export.WriteOffers(w, offers, format, export.WriteOptions{}); err != nil {
		return 0, err
	}
	return len(offers), nil
}
