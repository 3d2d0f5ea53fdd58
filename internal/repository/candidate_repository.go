package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type CandidateRepository interface {
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	UpdateStatus(ctx context.Context, id, status, decidedBy string) error
	ApplyAssignment(ctx context.Context, id string, testIDs []string, assignedBy string, examDate *time.Time, status string) error
	Ping(ctx context.Context) error
}

type candidateRepository struct {
	*PostgresRepository
}

func NewCandidateRepository(db *sql.DB, logger zerolog.Logger) CandidateRepository {
	return &candidateRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *candidateRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	query := `
		SELECT id, email, first_name, last_name, education_level, job_position, company,
		       authorization_status, authorized_by, authorization_date,
		       assigned_test_ids, assigned_by, exam_date, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	candidate := &models.Candidate{}
	var testIDs pq.StringArray

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&candidate.ID,
		&candidate.Email,
		&candidate.FirstName,
		&candidate.LastName,
		&candidate.EducationLevel,
		&candidate.JobPosition,
		&candidate.Company,
		&candidate.AuthorizationStatus,
		&candidate.AuthorizedBy,
		&candidate.AuthorizationDate,
		&testIDs,
		&candidate.AssignedBy,
		&candidate.ExamDate,
		&candidate.CreatedAt,
		&candidate.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	candidate.AssignedTestIDs = testIDs
	return candidate, nil
}

func (r *candidateRepository) UpdateStatus(ctx context.Context, id, status, decidedBy string) error {
	query := `
		UPDATE users
		SET authorization_status = $2,
		    authorized_by = $3,
		    authorization_date = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, decidedBy)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *candidateRepository) ApplyAssignment(ctx context.Context, id string, testIDs []string, assignedBy string, examDate *time.Time, status string) error {
	query := `
		UPDATE users
		SET assigned_test_ids = $2,
		    assigned_by = $3,
		    exam_date = $4,
		    authorization_status = COALESCE(NULLIF($5, ''), authorization_status),
		    authorization_date = CASE WHEN $5 <> '' THEN NOW() ELSE authorization_date END,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, pq.Array(testIDs), assignedBy, examDate, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
