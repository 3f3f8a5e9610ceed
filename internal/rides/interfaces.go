package rides

import (
	"context"

	"github.com/taxidata/platform/pkg/pagination"
)

// RepositoryInterface defines the ride persistence contract
type RepositoryInterface interface {
	Save(ctx context.Context, ride *Ride) (*Ride, error)
	FindByID(ctx context.Context, id int64) (*Ride, error)
	FindByPriceRange(ctx context.Context, minPrice, maxPrice float64, spec pagination.PageSpec) ([]Ride, int64, error)
}
