package geo

import (
	"context"

	"github.com/applidesk/backend/internal/models"
)

// DistanceProvider resolves travel distance in km from each origin to the
// destination. The result is parallel to origins; an element of +Inf means
// that one origin could not be routed. A returned error means the whole
// lookup failed (transport, auth).
type DistanceProvider interface {
	BatchDistanceKm(ctx context.Context, origins []models.Address, destination models.Address) ([]float64, error)
}

// RegionExpander widens an engineer search to districts near the given one.
// An empty result is valid; order carries no meaning.
type RegionExpander interface {
	NearbyDistricts(ctx context.Context, district string) ([]string, error)
}

// StaticRegions is a fixed district adjacency table, used in dev mode and
// tests when no places service is configured.
type StaticRegions map[string][]string

func (s StaticRegions) NearbyDistricts(_ context.Context, district string) ([]string, error) {
	return s[district], nil
}
