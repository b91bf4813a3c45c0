package weather

import (
	"context"

	"github.com/i474232898/local-forecast/internal/location"
)

// Provider abstracts the remote forecast source. Fetch performs exactly one
// round trip and returns a *common.PipelineError on failure.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coord location.Coordinate, credential string) (Snapshot, error)
}
