package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/applidesk/backend/internal/models"
)

type fakeDirectory struct {
	byDistrict map[string][]string
	profiles   map[string]models.EngineerCandidate
	queried    []string
}

func (f *fakeDirectory) FindAvailable(_ context.Context, district, _, _ string) ([]string, error) {
	f.queried = append(f.queried, district)
	return f.byDistrict[district], nil
}

func (f *fakeDirectory) GetProfile(_ context.Context, engineerID string) (models.EngineerCandidate, error) {
	p, ok := f.profiles[engineerID]
	if !ok {
		return models.EngineerCandidate{}, fmt.Errorf("engineer %s not found", engineerID)
	}
	return p, nil
}

type distanceResult struct {
	distances []float64
	err       error
}

type fakeDistance struct {
	script []distanceResult
	calls  int
}

func (f *fakeDistance) BatchDistanceKm(_ context.Context, origins []models.Address, _ models.Address) ([]float64, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	res := f.script[idx]
	if res.err != nil {
		return nil, res.err
	}
	if res.distances != nil {
		return res.distances, nil
	}
	return make([]float64, len(origins)), nil
}

func newRanker(dir *fakeDirectory, dist *fakeDistance, slept *[]time.Duration) *Ranker {
	return &Ranker{
		Directory: dir,
		Distance:  dist,
		Retry: RetryPolicy{
			Attempts: 3,
			Delay:    5 * time.Second,
			Sleep: func(d time.Duration) {
				if slept != nil {
					*slept = append(*slept, d)
				}
			},
		},
		Logger: zerolog.Nop(),
	}
}

func TestRankEmptyPoolShortCircuits(t *testing.T) {
	dist := &fakeDistance{script: []distanceResult{{}}}
	r := newRanker(&fakeDirectory{}, dist, nil)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, nil)
	if out.Code != models.OutcomeUnavailable {
		t.Fatalf("expected unavailable, got %+v", out)
	}
	if dist.calls != 0 {
		t.Fatalf("expected no distance calls, got %d", dist.calls)
	}
}

func TestScoreFormula(t *testing.T) {
	cases := []struct {
		distanceKm    float64
		rating        float64
		activeTickets int
		want          float64
	}{
		{10, 4.5, 2, 0.5*0.8 + 0.3*0.9 + 0.2*(1-2.0/15)},
		{40, 5.0, 1, 0.5*0.2 + 0.3*1.0 + 0.2*(1-1.0/15)},
		{0, 5.0, 0, 1.0},
		{50, 0, 15, 0},
		{120, 3.0, 30, 0.3 * 0.6},
	}
	for _, tc := range cases {
		got := Score(tc.distanceKm, tc.rating, tc.activeTickets)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Score(%v, %v, %v) = %v, want %v", tc.distanceKm, tc.rating, tc.activeTickets, got, tc.want)
		}
	}
}

func TestScoreInfiniteDistanceFloorsAtZero(t *testing.T) {
	got := Score(math.Inf(1), 5.0, 0)
	want := 0.3*1.0 + 0.2*1.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected proximity floor of 0, got total %v want %v", got, want)
	}
}

func TestRankPicksHighestScore(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{
		"E1": {ID: "E1", Rating: 4.5, ActiveTickets: 2},
		"E2": {ID: "E2", Rating: 5.0, ActiveTickets: 1},
	}}
	dist := &fakeDistance{script: []distanceResult{{distances: []float64{10, 40}}}}
	r := newRanker(dir, dist, nil)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"E1", "E2"})
	if out.Code != models.OutcomeAssigned || out.EngineerID != "E1" {
		t.Fatalf("expected E1 assigned, got %+v", out)
	}
}

func TestRankTieBreakKeepsFirstCandidate(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{
		"E1": {ID: "E1", Rating: 4.0, ActiveTickets: 3},
		"E2": {ID: "E2", Rating: 4.0, ActiveTickets: 3},
	}}
	dist := &fakeDistance{script: []distanceResult{{distances: []float64{20, 20}}}}
	r := newRanker(dir, dist, nil)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"E1", "E2"})
	if out.EngineerID != "E1" {
		t.Fatalf("expected first candidate to win the tie, got %s", out.EngineerID)
	}
}

func TestRankUnroutableCandidateLoses(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{
		"E1": {ID: "E1", Rating: 5.0, ActiveTickets: 0},
		"E2": {ID: "E2", Rating: 2.0, ActiveTickets: 10},
	}}
	dist := &fakeDistance{script: []distanceResult{{distances: []float64{math.Inf(1), 5}}}}
	r := newRanker(dir, dist, nil)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"E1", "E2"})
	if out.EngineerID != "E2" {
		t.Fatalf("expected routable candidate to win, got %s", out.EngineerID)
	}
}

func TestRankRetriesThenFails(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{
		"E1": {ID: "E1", Rating: 4.0, ActiveTickets: 1},
	}}
	dist := &fakeDistance{script: []distanceResult{{err: errors.New("provider down")}}}
	var slept []time.Duration
	r := newRanker(dir, dist, &slept)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"E1"})
	if out.Code != models.OutcomeSystemFailure {
		t.Fatalf("expected system failure, got %+v", out)
	}
	if dist.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", dist.calls)
	}
	if len(slept) != 2 || slept[0] != 5*time.Second || slept[1] != 5*time.Second {
		t.Fatalf("expected two fixed 5s delays, got %v", slept)
	}
}

func TestRankRetriesThenSucceeds(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{
		"E1": {ID: "E1", Rating: 4.0, ActiveTickets: 1},
	}}
	dist := &fakeDistance{script: []distanceResult{
		{err: errors.New("provider down")},
		{distances: []float64{12}},
	}}
	var slept []time.Duration
	r := newRanker(dir, dist, &slept)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"E1"})
	if out.Code != models.OutcomeAssigned || out.EngineerID != "E1" {
		t.Fatalf("expected assignment after retry, got %+v", out)
	}
	if dist.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", dist.calls)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one delay, got %v", slept)
	}
}

func TestRankProfileFetchFailureIsSystemFailure(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{}}
	dist := &fakeDistance{script: []distanceResult{{distances: []float64{1}}}}
	r := newRanker(dir, dist, nil)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"GHOST"})
	if out.Code != models.OutcomeSystemFailure {
		t.Fatalf("expected system failure on unknown engineer, got %+v", out)
	}
	if dist.calls != 0 {
		t.Fatalf("expected no distance call after profile failure, got %d", dist.calls)
	}
}

func TestRankDistanceCountMismatchIsSystemFailure(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]models.EngineerCandidate{
		"E1": {ID: "E1", Rating: 4.0, ActiveTickets: 1},
		"E2": {ID: "E2", Rating: 4.0, ActiveTickets: 1},
	}}
	dist := &fakeDistance{script: []distanceResult{{distances: []float64{7}}}}
	r := newRanker(dir, dist, nil)

	out := r.Rank(context.Background(), models.Address{City: "Pune"}, []string{"E1", "E2"})
	if out.Code != models.OutcomeSystemFailure {
		t.Fatalf("expected system failure on result count mismatch, got %+v", out)
	}
}
