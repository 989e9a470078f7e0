package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/applidesk/backend/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAssigned = errors.New("request already assigned")
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindAvailable returns the ids of available engineers in the given
// district whose specializations cover the appliance sub-category and whose
// skills cover the request type. An empty result is not an error.
func (s *Store) FindAvailable(ctx context.Context, district, specialization, skill string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id FROM engineers
		WHERE available
		  AND district = $1
		  AND $2 = ANY(specializations)
		  AND $3 = ANY(skills)
		ORDER BY active_tickets ASC, id ASC
	`, district, specialization, skill)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetProfile(ctx context.Context, engineerID string) (models.EngineerCandidate, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, street, city, state, zip, rating, active_tickets
		FROM engineers WHERE id = $1
	`, engineerID)

	var c models.EngineerCandidate
	if err := row.Scan(&c.ID, &c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.Zip, &c.Rating, &c.ActiveTickets); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.EngineerCandidate{}, fmt.Errorf("engineer %s: %w", engineerID, ErrNotFound)
		}
		return models.EngineerCandidate{}, err
	}
	if err := c.Validate(); err != nil {
		return models.EngineerCandidate{}, err
	}
	return c, nil
}

func (s *Store) ListEngineers(ctx context.Context, district, specialization, skill string) ([]models.Engineer, error) {
	query := `SELECT id, name, district, specializations, skills, street, city, state, zip, rating, active_tickets, available FROM engineers`
	var args []any
	var wheres []string
	if district != "" {
		args = append(args, district)
		wheres = append(wheres, fmt.Sprintf("district = $%d", len(args)))
	}
	if specialization != "" {
		args = append(args, specialization)
		wheres = append(wheres, fmt.Sprintf("$%d = ANY(specializations)", len(args)))
	}
	if skill != "" {
		args = append(args, skill)
		wheres = append(wheres, fmt.Sprintf("$%d = ANY(skills)", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY active_tickets ASC, id ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Engineer
	for rows.Next() {
		var e models.Engineer
		if err := rows.Scan(&e.ID, &e.Name, &e.District, &e.Specializations, &e.Skills, &e.Address.Street, &e.Address.City, &e.Address.State, &e.Address.Zip, &e.Rating, &e.ActiveTickets, &e.Available); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateServiceRequest(ctx context.Context, r models.ServiceRequest) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO service_requests
			(id, customer_id, appliance_category, appliance_subcategory, request_type,
			 street, city, state, zip, assignment_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, r.ID, r.CustomerID, r.ApplianceCategory, r.ApplianceSubcategory, r.RequestType,
		r.Address.Street, r.Address.City, r.Address.State, r.Address.Zip,
		r.AssignmentStatus, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) GetServiceRequest(ctx context.Context, requestID string) (models.ServiceRequest, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, customer_id, appliance_category, appliance_subcategory, request_type,
		       street, city, state, zip, assigned_to, assignment_status, assignment_notes,
		       created_at, updated_at
		FROM service_requests WHERE id = $1
	`, requestID)

	var r models.ServiceRequest
	if err := row.Scan(&r.ID, &r.CustomerID, &r.ApplianceCategory, &r.ApplianceSubcategory, &r.RequestType,
		&r.Address.Street, &r.Address.City, &r.Address.State, &r.Address.Zip,
		&r.AssignedTo, &r.AssignmentStatus, &r.AssignmentNotes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ServiceRequest{}, fmt.Errorf("service request %s: %w", requestID, ErrNotFound)
		}
		return models.ServiceRequest{}, err
	}
	return r, nil
}

// LoadRequestContext builds the assignment snapshot for one request. The
// customer id is part of the key so one customer cannot trigger assignment
// of another customer's request.
func (s *Store) LoadRequestContext(ctx context.Context, customerID, requestID string) (models.ServiceRequestContext, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT customer_id, id, appliance_subcategory, request_type, street, city, state, zip
		FROM service_requests WHERE id = $1 AND customer_id = $2
	`, requestID, customerID)

	var rc models.ServiceRequestContext
	if err := row.Scan(&rc.CustomerID, &rc.RequestID, &rc.ApplianceSubcategory, &rc.RequestType,
		&rc.CustomerAddress.Street, &rc.CustomerAddress.City, &rc.CustomerAddress.State, &rc.CustomerAddress.Zip); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ServiceRequestContext{}, fmt.Errorf("service request %s for customer %s: %w", requestID, customerID, ErrNotFound)
		}
		return models.ServiceRequestContext{}, err
	}
	if err := rc.Validate(); err != nil {
		return models.ServiceRequestContext{}, err
	}
	return rc, nil
}

// RecordAssignment writes the outcome of one assignment attempt. The update
// is conditional on the request still being unassigned, so a second
// concurrent attempt for the same request loses cleanly.
func (s *Store) RecordAssignment(ctx context.Context, requestID, assignedTo, status, notes string) error {
	var notesArg *string
	if notes != "" {
		notesArg = &notes
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE service_requests
		SET assigned_to = $1, assignment_status = $2, assignment_notes = $3, updated_at = NOW()
		WHERE id = $4 AND assignment_status = $5
	`, assignedTo, status, notesArg, requestID, models.StatusUnassigned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := s.Pool.QueryRow(ctx, `SELECT assignment_status FROM service_requests WHERE id = $1`, requestID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("service request %s: %w", requestID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("service request %s in status %s: %w", requestID, current, ErrAlreadyAssigned)
	}
	return nil
}
