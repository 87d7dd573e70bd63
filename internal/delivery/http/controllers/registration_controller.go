package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/delivery/http/middleware"
	"schoolevents/internal/domain"
)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterRequest is the request body for POST /registrations.
type RegisterRequest struct {
	EventID string `json:"event_id"`
	Comment string `json:"comment"`
}

// Validate implements helpers.Validator.
func (r *RegisterRequest) Validate() []string {
	var errs []string
	r.EventID = strings.TrimSpace(r.EventID)
	if r.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if uuid.Validate(r.EventID) != nil {
		errs = append(errs, "event_id must be a UUID")
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Comment)) > domain.MaxCommentLength {
		errs = append(errs, "comment must be at most 500 characters")
	}
	return errs
}

// RegistrationSuccessResponse is the success response envelope for POST /registrations (201).
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Register godoc
// @Summary Register the current user for an event
// @Description Admits the authenticated user to the event if a spot is free. A cancelled registration for the same event is re-activated.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.RegisterRequest true "Event and optional comment"
// @Success 201 {object} controllers.RegistrationSuccessResponse "Registration confirmed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: duplicate_registration or capacity_exceeded"
// @Failure 503 {object} helpers.APIResponse "error.code: transient_storage"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	reg, err := c.Service.Register(r.Context(), userID, req.EventID, req.Comment)
	if err != nil {
		c.writeServiceError(w, r, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Cancels the authenticated user's registration and frees its spot. Unknown or malformed ids and registrations of other users are reported as not found.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data: null"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: transient_storage"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	// Registration ids are UUIDs; anything else cannot match a registration.
	registrationID := r.PathValue("registrationID")
	if uuid.Validate(registrationID) != nil {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
		return
	}

	if err := c.Service.Cancel(r.Context(), userID, registrationID); err != nil {
		c.writeServiceError(w, r, err, "registration not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// MyRegistrationsSuccessResponse is the success response envelope for GET /registrations/my.
type MyRegistrationsSuccessResponse struct {
	Data  []*domain.RegistrationWithEvent `json:"data"`
	Error *helpers.APIError               `json:"error"`
}

// ListMyRegistrations godoc
// @Summary List the current user's registrations
// @Description Returns the authenticated user's active registrations, newest first, with event details. Cancelled registrations are not listed.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyRegistrationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 503 {object} helpers.APIResponse "error.code: transient_storage"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/my [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	list, err := c.Service.ListMyRegistrations(r.Context(), userID)
	if err != nil {
		c.writeServiceError(w, r, err, "not found")
		return
	}
	if list == nil {
		list = []*domain.RegistrationWithEvent{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

func (c *RegistrationController) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrDuplicateRegistration):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeDuplicateRegistration, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrTransientStorage):
		c.Logger.WarnContext(r.Context(), "request failed, storage unavailable", "path", r.URL.Path, "method", r.Method, "err", err)
		w.Header().Set("Retry-After", "1")
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeTransientStorage, "temporarily unavailable, please retry")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}
