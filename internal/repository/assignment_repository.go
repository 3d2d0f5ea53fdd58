package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type AssignmentRepository interface {
	Save(ctx context.Context, record *models.AssignmentRecord) error
	GetByCandidateID(ctx context.Context, candidateID string) (*models.AssignmentRecord, error)
	Ping(ctx context.Context) error
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// Save upserts keyed on candidate_id: a concurrent duplicate flow for
// the same candidate becomes a conditional overwrite, never a second row.
func (r *assignmentRepository) Save(ctx context.Context, record *models.AssignmentRecord) error {
	query := `
		INSERT INTO assignments (id, candidate_id, assigned_test_ids, assigned_by, is_manual, exam_date, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (candidate_id) DO UPDATE SET
			assigned_test_ids = EXCLUDED.assigned_test_ids,
			assigned_by = EXCLUDED.assigned_by,
			is_manual = EXCLUDED.is_manual,
			exam_date = EXCLUDED.exam_date,
			assigned_at = EXCLUDED.assigned_at
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.CandidateID,
		pq.Array(record.AssignedTestIDs),
		record.AssignedBy,
		record.IsManualAssignment,
		record.ExamDate,
		record.AssignedAt,
	)

	return err
}

func (r *assignmentRepository) GetByCandidateID(ctx context.Context, candidateID string) (*models.AssignmentRecord, error) {
	query := `
		SELECT id, candidate_id, assigned_test_ids, assigned_by, is_manual, exam_date, assigned_at
		FROM assignments
		WHERE candidate_id = $1
	`

	record := &models.AssignmentRecord{}
	var testIDs pq.StringArray

	err := r.db.QueryRowContext(ctx, query, candidateID).Scan(
		&record.ID,
		&record.CandidateID,
		&testIDs,
		&record.AssignedBy,
		&record.IsManualAssignment,
		&record.ExamDate,
		&record.AssignedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.AssignedTestIDs = testIDs
	return record, nil
}
