package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/repository"
)

// Primary test names per education bucket.
const (
	TestLowLevel  = "D-70"
	TestHighLevel = "D-2000"
)

// lowEducationLevels marks candidates routed to the basic reasoning test.
var lowEducationLevels = []string{"high_school", "vocational", "some_college"}

type Service interface {
	ListTests(ctx context.Context, filter models.TestFilter) ([]models.TestSummary, error)
}

type service struct {
	repo   repository.TestRepository
	logger zerolog.Logger
}

func NewService(repo repository.TestRepository, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger,
	}
}

// ListTests returns active tests ordered most-suitable-first for the
// candidate described by the filter: the education-level bucket picks
// the primary test, everything else follows in catalog order.
func (s *service) ListTests(ctx context.Context, filter models.TestFilter) ([]models.TestSummary, error) {
	tests, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	primary := PrimaryTestFor(filter.EducationLevel)

	summaries := make([]models.TestSummary, 0, len(tests))
	for _, test := range tests {
		summary := models.TestSummary{
			TestID:   test.ID,
			Name:     test.Name,
			Category: test.Category,
		}
		if test.Name == primary {
			summaries = append([]models.TestSummary{summary}, summaries...)
			continue
		}
		summaries = append(summaries, summary)
	}

	s.logger.Debug().
		Str("education_level", filter.EducationLevel).
		Str("primary", primary).
		Int("tests", len(summaries)).
		Msg("Resolved test list")

	return summaries, nil
}

// PrimaryTestFor maps an education level onto the test a candidate sits
// first. Matching is by substring, mirroring the free-form levels the
// user service stores.
func PrimaryTestFor(educationLevel string) string {
	level := strings.ToLower(educationLevel)
	for _, low := range lowEducationLevels {
		if strings.Contains(level, low) {
			return TestLowLevel
		}
	}
	return TestHighLevel
}
