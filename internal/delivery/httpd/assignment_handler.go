package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/middleware"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/assignment"
)

type AssignmentHandler struct {
	service      assignment.Service
	serviceToken string
	checks       []DependencyCheck
	logger       zerolog.Logger
}

func NewAssignmentHandler(
	service assignment.Service,
	serviceToken string,
	checks []DependencyCheck,
	logger zerolog.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		service:      service,
		serviceToken: serviceToken,
		checks:       checks,
		logger:       logger,
	}
}

// RegisterRoutes mounts the assignment API. Everything except the health
// probe sits behind the service credential.
func (h *AssignmentHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", HealthHandler("assignment-service", h.checks))

	router.Route("/api/assignments", func(r chi.Router) {
		r.Use(middleware.RequireServiceToken(h.serviceToken, h.logger))

		r.Put("/bulk-update", h.BulkUpdate)
		r.Put("/{userId}/assign", h.ManualAssign)
		r.Get("/{userId}", h.GetStatus)
	})
}

func (h *AssignmentHandler) ManualAssign(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "userId")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "Candidate ID is required")
		return
	}

	var req models.ManualAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := h.service.Manual(r.Context(), candidateID, &req)
	if err != nil {
		if errors.Is(err, assignment.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("candidate_id", candidateID).Msg("Manual assignment failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if outcome.Outcome != models.OutcomeAssigned {
		h.writeOutcomeError(w, outcome)
		return
	}

	writeSuccess(w, outcome)
}

func (h *AssignmentHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Bulk(r.Context(), &req)
	if err != nil {
		if errors.Is(err, assignment.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Bulk update failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Partial failures are reported per candidate, not as an HTTP error.
	writeSuccess(w, result)
}

func (h *AssignmentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "userId")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "Candidate ID is required")
		return
	}

	record, err := h.service.Status(r.Context(), candidateID)
	if err != nil {
		h.logger.Error().Err(err).Str("candidate_id", candidateID).Msg("Failed to load assignment")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if record == nil {
		writeError(w, http.StatusNotFound, "No assignment found for candidate")
		return
	}

	writeSuccess(w, record)
}

func (h *AssignmentHandler) writeOutcomeError(w http.ResponseWriter, outcome models.CandidateOutcome) {
	switch outcome.Reason {
	case models.ReasonInvalidInput:
		writeError(w, http.StatusBadRequest, "Candidate is not eligible for assignment")
	case models.ReasonCatalogUnavailable:
		writeError(w, http.StatusServiceUnavailable, "Test catalog is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to complete assignment")
	}
}
