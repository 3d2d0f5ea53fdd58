package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type TestRepository interface {
	GetActive(ctx context.Context) ([]models.Test, error)
	GetByID(ctx context.Context, id string) (*models.Test, error)
	Ping(ctx context.Context) error
}

type testRepository struct {
	*PostgresRepository
}

func NewTestRepository(db *sql.DB, logger zerolog.Logger) TestRepository {
	return &testRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *testRepository) GetActive(ctx context.Context) ([]models.Test, error) {
	query := `
		SELECT id, name, type, category, difficulty, duration, is_active, created_at
		FROM tests
		WHERE is_active = true
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []models.Test
	for rows.Next() {
		var test models.Test
		err := rows.Scan(
			&test.ID,
			&test.Name,
			&test.Type,
			&test.Category,
			&test.Difficulty,
			&test.Duration,
			&test.IsActive,
			&test.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

func (r *testRepository) GetByID(ctx context.Context, id string) (*models.Test, error) {
	query := `
		SELECT id, name, type, category, difficulty, duration, is_active, created_at
		FROM tests
		WHERE id = $1
	`

	test := &models.Test{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&test.ID,
		&test.Name,
		&test.Type,
		&test.Category,
		&test.Difficulty,
		&test.Duration,
		&test.IsActive,
		&test.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return test, err
}
