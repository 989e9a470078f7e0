package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/applidesk/backend/internal/geo"
	"github.com/applidesk/backend/internal/models"
)

// Directory is the engineer lookup surface the assignment core needs.
type Directory interface {
	FindAvailable(ctx context.Context, district, specialization, skill string) ([]string, error)
	GetProfile(ctx context.Context, engineerID string) (models.EngineerCandidate, error)
}

const (
	proximityCapKm  = 50.0
	fairnessCapOpen = 15.0
	ratingScale     = 5.0

	proximityWeight = 0.5
	qualityWeight   = 0.3
	fairnessWeight  = 0.2
)

// RetryPolicy is the fixed-delay retry applied to the batch distance call.
// Sleep is injectable so tests run without real delays.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

func (p RetryPolicy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

func (p RetryPolicy) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Ranker picks the best engineer for a customer address out of a flat pool
// of candidate ids. Internal failures never escape as errors; they collapse
// into the SystemFailure outcome.
type Ranker struct {
	Directory Directory
	Distance  geo.DistanceProvider
	Retry     RetryPolicy
	Logger    zerolog.Logger
}

func (r *Ranker) Rank(ctx context.Context, customerAddress models.Address, candidateIDs []string) models.AssignmentOutcome {
	if len(candidateIDs) == 0 {
		return models.Unavailable()
	}

	candidates := make([]models.EngineerCandidate, 0, len(candidateIDs))
	origins := make([]models.Address, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		candidate, err := r.Directory.GetProfile(ctx, id)
		if err != nil {
			r.Logger.Error().Err(err).Str("engineer_id", id).Msg("profile fetch failed")
			return models.SystemFailure()
		}
		candidates = append(candidates, candidate)
		origins = append(origins, candidate.Address)
	}

	distances, err := r.batchDistance(ctx, origins, customerAddress)
	if err != nil {
		r.Logger.Error().Err(err).Int("candidates", len(candidates)).Msg("distance lookup exhausted")
		return models.SystemFailure()
	}

	// Strict-greater replacement keeps the earliest candidate on ties, which
	// preserves the directory's ascending active-ticket ordering.
	bestIdx := 0
	bestScore := Score(distances[0], candidates[0].Rating, candidates[0].ActiveTickets)
	for i := 1; i < len(candidates); i++ {
		s := Score(distances[i], candidates[i].Rating, candidates[i].ActiveTickets)
		if s > bestScore {
			bestIdx = i
			bestScore = s
		}
	}

	r.Logger.Debug().
		Str("engineer_id", candidates[bestIdx].ID).
		Float64("score", bestScore).
		Int("pool_size", len(candidates)).
		Msg("engineer ranked")
	return models.Assigned(candidates[bestIdx].ID)
}

// Score computes the weighted composite fitness for one candidate.
// An unroutable candidate (distance +Inf) floors proximity at zero.
func Score(distanceKm, rating float64, activeTickets int) float64 {
	proximity := math.Max(0, 1-distanceKm/proximityCapKm)
	quality := rating / ratingScale
	fairness := math.Max(0, 1-float64(activeTickets)/fairnessCapOpen)
	return proximityWeight*proximity + qualityWeight*quality + fairnessWeight*fairness
}

func (r *Ranker) batchDistance(ctx context.Context, origins []models.Address, destination models.Address) ([]float64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.Retry.attempts(); attempt++ {
		if attempt > 1 {
			r.Retry.sleep(r.Retry.Delay)
		}
		distances, err := r.Distance.BatchDistanceKm(ctx, origins, destination)
		if err == nil {
			if len(distances) != len(origins) {
				return nil, fmt.Errorf("distance provider returned %d results for %d origins", len(distances), len(origins))
			}
			return distances, nil
		}
		lastErr = err
		r.Logger.Warn().Err(err).Int("attempt", attempt).Msg("distance lookup failed")
	}
	return nil, lastErr
}
