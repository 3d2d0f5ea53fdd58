package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/middleware"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/integration"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/user"
)

type UserHandler struct {
	users        user.Service
	auth         integration.AuthClient
	serviceToken string
	adminRoles   []string
	checks       []DependencyCheck
	logger       zerolog.Logger
}

func NewUserHandler(
	users user.Service,
	auth integration.AuthClient,
	serviceToken string,
	adminRoles []string,
	checks []DependencyCheck,
	logger zerolog.Logger,
) *UserHandler {
	return &UserHandler{
		users:        users,
		auth:         auth,
		serviceToken: serviceToken,
		adminRoles:   adminRoles,
		checks:       checks,
		logger:       logger,
	}
}

// RegisterRoutes mounts the user API. The service lookup endpoint is
// for peer services only; the decision endpoint is for staff users.
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", HealthHandler("user-service", h.checks))

	router.Route("/api/users", func(r chi.Router) {
		r.Route("/service", func(r chi.Router) {
			r.Use(middleware.RequireServiceToken(h.serviceToken, h.logger))
			r.Get("/{userId}", h.GetCandidate)
		})

		r.Route("/{userId}/decision", func(r chi.Router) {
			r.Use(middleware.Authenticate(h.auth, h.logger, h.adminRoles...))
			r.Put("/", h.Decide)
		})
	})
}

func (h *UserHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "userId")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "Candidate ID is required")
		return
	}

	candidate, err := h.users.GetCandidate(r.Context(), candidateID)
	if err != nil {
		h.logger.Error().Err(err).Str("candidate_id", candidateID).Msg("Failed to load candidate")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if candidate == nil {
		writeError(w, http.StatusNotFound, "Candidate not found")
		return
	}

	writeSuccess(w, candidate)
}

func (h *UserHandler) Decide(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "userId")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "Candidate ID is required")
		return
	}

	var req models.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decidedBy := middleware.UserIDFromContext(r.Context())

	candidate, err := h.users.Decide(r.Context(), candidateID, req.Status, decidedBy, req.ExamDate)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidDecision):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrCandidateNotFound):
			writeError(w, http.StatusNotFound, "Candidate not found")
		default:
			h.logger.Error().Err(err).Str("candidate_id", candidateID).Msg("Decision failed")
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, candidate)
}
