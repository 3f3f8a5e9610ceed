package processor

import (
	"context"

	"github.com/taxidata/platform/internal/rides"
	"github.com/taxidata/platform/pkg/logger"
	"github.com/taxidata/platform/pkg/resilience"
	"go.uber.org/zap"
)

// SaveRideBreakerName is the registered name of the breaker guarding ride
// persistence. It is a stable identifier across deployments.
const SaveRideBreakerName = "saveRideCB"

// RideSaver is the slice of the ride store the pipeline needs
type RideSaver interface {
	Save(ctx context.Context, ride *rides.Ride) (*rides.Ride, error)
}

// Pipeline persists ride events delivered from the queue. Every save goes
// through the shared circuit breaker; validation failures never reach the
// store and never count toward the breaker window.
type Pipeline struct {
	repo    RideSaver
	breaker *resilience.Breaker
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(repo RideSaver, breaker *resilience.Breaker) *Pipeline {
	return &Pipeline{repo: repo, breaker: breaker}
}

// HandleMessage validates and persists one ride event, returning the ride
// with its store-assigned identity. The caller decides redelivery from the
// error it gets back: a validation error is final for the message, a
// resilience.ErrCircuitOpen or store error means the message was not consumed.
func (p *Pipeline) HandleMessage(ctx context.Context, ride *rides.Ride) (*rides.Ride, error) {
	if err := ride.Validate(); err != nil {
		return nil, err
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.repo.Save(ctx, ride)
	})
	if err != nil {
		return nil, err
	}

	saved := result.(*rides.Ride)

	endPlace := ""
	if saved.End != nil {
		endPlace = saved.End.Place
	}
	logger.WithContext(ctx).Info("ride saved",
		zap.Int64("ride_id", saved.ID),
		zap.String("start", saved.Start.Place),
		zap.String("end", endPlace),
	)

	return saved, nil
}
