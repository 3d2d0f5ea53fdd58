package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/catalog"
)

type CatalogHandler struct {
	catalog catalog.Service
	checks  []DependencyCheck
	logger  zerolog.Logger
}

func NewCatalogHandler(svc catalog.Service, checks []DependencyCheck, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: svc,
		checks:  checks,
		logger:  logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", HealthHandler("test-service", h.checks))

	router.Route("/api/tests", func(r chi.Router) {
		r.Get("/", h.ListTests)
	})
}

// ListTests returns the active tests ordered for the candidate profile
// described in the query, most suitable first.
func (h *CatalogHandler) ListTests(w http.ResponseWriter, r *http.Request) {
	filter := models.TestFilter{
		JobPosition:    r.URL.Query().Get("job_position"),
		EducationLevel: r.URL.Query().Get("education_level"),
	}

	tests, err := h.catalog.ListTests(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tests")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSuccess(w, models.TestListResponse{Tests: tests})
}
