package weather

import (
	"context"
)

// Source abstracts the remote weather API.
type Source interface {
	Name() string
	Fetch(ctx context.Context, site Site) (RawObservation, error)
}

// Store is the durable keyed collection of latest observations.
type Store interface {
	Upsert(obs Observation) error
}

// Publisher exposes a single site's latest observation as its own resource.
type Publisher interface {
	Publish(obs Observation) error
}
