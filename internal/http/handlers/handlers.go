package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/applidesk/backend/internal/db"
	"github.com/applidesk/backend/internal/models"
)

// Assigner is the assignment entry point the HTTP layer fronts.
type Assigner interface {
	Assign(ctx context.Context, customerID, requestID string) (models.AssignmentOutcome, error)
}

type Handler struct {
	Store       *db.Store
	Assignments Assigner
	Validator   *validator.Validate
	Logger      zerolog.Logger
	AdminKey    string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type assignRequest struct {
	CustomerID string `json:"customer_id" form:"customer_id"`
}

// @Summary Assign an engineer to a service request
// @Description Runs one assignment attempt; result is the engineer id or a sentinel token
// @Tags assignment
// @Accept json
// @Produce json
// @Param id path string true "service request id"
// @Param customer_id query string false "customer id (or in JSON body)"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/requests/{id}/assign [post]
func (h *Handler) AssignRequest(c *gin.Context) {
	requestID := c.Param("id")

	var payload assignRequest
	_ = c.ShouldBind(&payload)
	customerID := strings.TrimSpace(payload.CustomerID)
	if customerID == "" {
		customerID = strings.TrimSpace(c.Query("customer_id"))
	}
	// Legacy contract: a missing customer id yields an empty result, not an
	// error status.
	if customerID == "" {
		c.JSON(http.StatusOK, gin.H{"result": ""})
		return
	}

	outcome, err := h.Assignments.Assign(c.Request.Context(), customerID, requestID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyAssigned) {
			writeError(c, http.StatusConflict, "ALREADY_ASSIGNED", "Request already has an assignment", nil)
			return
		}
		// Broad legacy boundary: a failed write degrades to the system
		// failure token rather than surfacing internals to the caller.
		h.Logger.Error().Err(err).Str("request_id", requestID).Msg("assignment persistence failed")
		c.JSON(http.StatusOK, gin.H{"result": models.TokenSystemFailure})
		return
	}

	// Callers distinguish outcomes by value, not status code.
	c.JSON(http.StatusOK, gin.H{"result": outcome.LegacyToken()})
}

type createRequestPayload struct {
	CustomerID           string `json:"customer_id" validate:"required"`
	ApplianceCategory    string `json:"appliance_category" validate:"required"`
	ApplianceSubcategory string `json:"appliance_subcategory" validate:"required"`
	RequestType          string `json:"request_type" validate:"required"`
	Street               string `json:"street"`
	City                 string `json:"city" validate:"required"`
	State                string `json:"state"`
	Zip                  string `json:"zip"`
}

// @Summary Create a service request
// @Tags requests
// @Accept json
// @Produce json
// @Success 201 {object} models.ServiceRequest
// @Failure 400 {object} map[string]any
// @Router /api/requests [post]
func (h *Handler) CreateRequest(c *gin.Context) {
	var payload createRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields", err.Error())
		return
	}

	now := time.Now().UTC()
	request := models.ServiceRequest{
		ID:                   "REQ-" + uuid.NewString(),
		CustomerID:           payload.CustomerID,
		ApplianceCategory:    payload.ApplianceCategory,
		ApplianceSubcategory: payload.ApplianceSubcategory,
		RequestType:          payload.RequestType,
		Address: models.Address{
			Street: payload.Street,
			City:   payload.City,
			State:  payload.State,
			Zip:    payload.Zip,
		},
		AssignmentStatus: models.StatusUnassigned,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.Store.CreateServiceRequest(c.Request.Context(), request); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create service request", err.Error())
		return
	}
	c.JSON(http.StatusCreated, request)
}

// @Summary Get a service request
// @Tags requests
// @Produce json
// @Param id path string true "service request id"
// @Success 200 {object} models.ServiceRequest
// @Failure 404 {object} map[string]any
// @Router /api/requests/{id} [get]
func (h *Handler) RequestDetails(c *gin.Context) {
	request, err := h.Store.GetServiceRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Service request not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load service request", err.Error())
		return
	}

	// Assignment notes carry internal tokens and are only shown to
	// operators, never to customers.
	if !h.isAdmin(c) {
		request.AssignmentNotes = nil
	}
	c.JSON(http.StatusOK, request)
}

// @Summary List engineers
// @Tags engineers
// @Produce json
// @Param district query string false "filter by district"
// @Param specialization query string false "filter by specialization"
// @Param skill query string false "filter by skill"
// @Success 200 {array} models.Engineer
// @Router /api/engineers [get]
func (h *Handler) EngineersList(c *gin.Context) {
	engineers, err := h.Store.ListEngineers(c.Request.Context(),
		c.Query("district"), c.Query("specialization"), c.Query("skill"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list engineers", err.Error())
		return
	}
	if engineers == nil {
		engineers = []models.Engineer{}
	}
	c.JSON(http.StatusOK, engineers)
}

func (h *Handler) isAdmin(c *gin.Context) bool {
	return h.AdminKey != "" && c.GetHeader("X-Admin-Key") == h.AdminKey
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	body := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if details != nil {
		body["error"].(gin.H)["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}
