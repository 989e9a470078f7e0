package geo

import (
	"context"
	"math"

	"github.com/applidesk/backend/internal/models"
	"github.com/applidesk/backend/internal/utils"
)

// MockProvider serves dev mode when no matrix API is configured. Distances
// are derived from a hash of the origin/destination pair so the same pair
// always yields the same distance.
type MockProvider struct{}

func (MockProvider) BatchDistanceKm(_ context.Context, origins []models.Address, destination models.Address) ([]float64, error) {
	out := make([]float64, 0, len(origins))
	dest := destination.Formatted()
	for _, o := range origins {
		h := utils.HashStringToUint64(o.Formatted() + "->" + dest)
		if h%29 == 0 {
			out = append(out, math.Inf(1))
			continue
		}
		out = append(out, float64(h%60)+0.5)
	}
	return out, nil
}
