package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/databunker/pricewatch/internal/pricing"
)

// Storage groups the data-access interfaces backed by the analytical
// warehouse.
type Storage struct {
	Competitors interface {
		FetchSnapshot(ctx context.Context, channels, storeIDs []string, targetDate time.Time) ([]pricing.CompetitorRow, error)
	}
}

func NewStorage(db *sqlx.DB) Storage {
	return Storage{
		Competitors: &CompetitorStore{DB: db},
	}
}
