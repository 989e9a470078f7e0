package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusUnassigned          = "unassigned"
	StatusPendingConfirmation = "pending_confirmation"
	StatusAdminFallback       = "admin_fallback"

	AdminAssignee = "ADMIN"
)

// Legacy sentinel tokens kept for backward compatibility with existing
// callers; they appear only in HTTP responses and admin-visible notes.
const (
	TokenUnavailable   = "ENGINEERS_UNAVAILABLE"
	TokenSystemFailure = "SYSTEM_FAILURE_ROLLBACK"
)

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (a Address) Formatted() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.Zip} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ServiceRequestContext is the read-only slice of a service request needed
// to run one assignment attempt.
type ServiceRequestContext struct {
	CustomerID           string
	RequestID            string
	ApplianceSubcategory string
	RequestType          string
	CustomerAddress      Address
}

func (c ServiceRequestContext) Validate() error {
	if strings.TrimSpace(c.CustomerID) == "" {
		return errors.New("service request context: empty customer id")
	}
	if strings.TrimSpace(c.RequestID) == "" {
		return errors.New("service request context: empty request id")
	}
	return nil
}

// EngineerCandidate carries the scoring attributes for one engineer.
// It lives only for the duration of a single assignment attempt.
type EngineerCandidate struct {
	ID            string
	Address       Address
	Rating        float64
	ActiveTickets int
}

func (e EngineerCandidate) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("engineer candidate: empty id")
	}
	if e.Rating < 0 || e.Rating > 5 {
		return fmt.Errorf("engineer candidate %s: rating %.2f out of range", e.ID, e.Rating)
	}
	if e.ActiveTickets < 0 {
		return fmt.Errorf("engineer candidate %s: negative active tickets", e.ID)
	}
	return nil
}

type Engineer struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	District        string   `json:"district"`
	Specializations []string `json:"specializations"`
	Skills          []string `json:"skills"`
	Address         Address  `json:"address"`
	Rating          float64  `json:"rating"`
	ActiveTickets   int      `json:"active_tickets"`
	Available       bool     `json:"available"`
}

type ServiceRequest struct {
	ID                   string    `json:"id"`
	CustomerID           string    `json:"customer_id"`
	ApplianceCategory    string    `json:"appliance_category"`
	ApplianceSubcategory string    `json:"appliance_subcategory"`
	RequestType          string    `json:"request_type"`
	Address              Address   `json:"address"`
	AssignedTo           *string   `json:"assigned_to"`
	AssignmentStatus     string    `json:"assignment_status"`
	AssignmentNotes      *string   `json:"assignment_notes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type OutcomeCode string

const (
	OutcomeAssigned      OutcomeCode = "ASSIGNED"
	OutcomeUnavailable   OutcomeCode = "UNAVAILABLE"
	OutcomeSystemFailure OutcomeCode = "SYSTEM_FAILURE"
)

// AssignmentOutcome is the tagged result of one assignment attempt.
// EngineerID is set exactly when Code is OutcomeAssigned.
type AssignmentOutcome struct {
	Code       OutcomeCode
	EngineerID string
}

func Assigned(engineerID string) AssignmentOutcome {
	return AssignmentOutcome{Code: OutcomeAssigned, EngineerID: engineerID}
}

func Unavailable() AssignmentOutcome {
	return AssignmentOutcome{Code: OutcomeUnavailable}
}

func SystemFailure() AssignmentOutcome {
	return AssignmentOutcome{Code: OutcomeSystemFailure}
}

// LegacyToken maps the outcome to the wire value existing callers expect:
// the engineer id itself, or one of the two sentinel strings.
func (o AssignmentOutcome) LegacyToken() string {
	switch o.Code {
	case OutcomeAssigned:
		return o.EngineerID
	case OutcomeUnavailable:
		return TokenUnavailable
	default:
		return TokenSystemFailure
	}
}
