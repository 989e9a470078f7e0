package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/applidesk/backend/internal/geo"
	"github.com/applidesk/backend/internal/models"
)

// RequestStore is the slice of the request record store the coordinator
// touches: one read to build the assignment snapshot, one conditional write
// to record the outcome.
type RequestStore interface {
	LoadRequestContext(ctx context.Context, customerID, requestID string) (models.ServiceRequestContext, error)
	RecordAssignment(ctx context.Context, requestID, assignedTo, status, notes string) error
}

// Coordinator drives one assignment attempt end to end: load the request
// snapshot, discover candidates (widening to nearby districts when the home
// district is empty), rank, persist. Each attempt is stateless; concurrent
// attempts for different requests share nothing.
type Coordinator struct {
	Store     RequestStore
	Directory Directory
	Regions   geo.RegionExpander
	Ranker    *Ranker
	Logger    zerolog.Logger
}

// Assign runs one attempt for (customerID, requestID). Discovery and ranking
// failures collapse into the SystemFailure outcome and still persist an
// admin-fallback record; only persistence errors are returned, so the caller
// can distinguish a lost write from a degraded outcome.
func (c *Coordinator) Assign(ctx context.Context, customerID, requestID string) (models.AssignmentOutcome, error) {
	reqCtx, err := c.Store.LoadRequestContext(ctx, customerID, requestID)
	if err != nil {
		// Without the snapshot there is no record to fall back on; the
		// outcome degrades to system failure without a write.
		c.Logger.Error().Err(err).Str("request_id", requestID).Str("customer_id", customerID).Msg("request context load failed")
		return models.SystemFailure(), nil
	}

	pool, err := c.discoverCandidates(ctx, reqCtx)
	if err != nil {
		c.Logger.Error().Err(err).Str("request_id", requestID).Msg("candidate discovery failed")
		return c.persist(ctx, requestID, models.SystemFailure())
	}

	outcome := c.Ranker.Rank(ctx, reqCtx.CustomerAddress, pool)
	return c.persist(ctx, requestID, outcome)
}

// discoverCandidates queries the home district first and only widens to one
// ring of nearby districts when it comes back empty. Candidates from
// multiple districts are concatenated as returned; an engineer listed by two
// district queries is kept twice (observed legacy behavior, kept until
// product confirms a dedup).
func (c *Coordinator) discoverCandidates(ctx context.Context, reqCtx models.ServiceRequestContext) ([]string, error) {
	homeDistrict := reqCtx.CustomerAddress.City
	pool, err := c.Directory.FindAvailable(ctx, homeDistrict, reqCtx.ApplianceSubcategory, reqCtx.RequestType)
	if err != nil {
		return nil, err
	}
	if len(pool) > 0 {
		return pool, nil
	}

	districts, err := c.Regions.NearbyDistricts(ctx, homeDistrict)
	if err != nil {
		return nil, err
	}
	c.Logger.Info().
		Str("request_id", reqCtx.RequestID).
		Str("district", homeDistrict).
		Int("nearby_districts", len(districts)).
		Msg("home district empty, expanding search")

	for _, district := range districts {
		ids, err := c.Directory.FindAvailable(ctx, district, reqCtx.ApplianceSubcategory, reqCtx.RequestType)
		if err != nil {
			return nil, err
		}
		pool = append(pool, ids...)
	}
	return pool, nil
}

func (c *Coordinator) persist(ctx context.Context, requestID string, outcome models.AssignmentOutcome) (models.AssignmentOutcome, error) {
	var err error
	if outcome.Code == models.OutcomeAssigned {
		err = c.Store.RecordAssignment(ctx, requestID, outcome.EngineerID, models.StatusPendingConfirmation, "")
	} else {
		err = c.Store.RecordAssignment(ctx, requestID, models.AdminAssignee, models.StatusAdminFallback, outcome.LegacyToken())
	}
	if err != nil {
		return outcome, err
	}

	c.Logger.Info().
		Str("request_id", requestID).
		Str("outcome", string(outcome.Code)).
		Str("assigned_to", map[bool]string{true: outcome.EngineerID, false: models.AdminAssignee}[outcome.Code == models.OutcomeAssigned]).
		Msg("assignment recorded")
	return outcome, nil
}
