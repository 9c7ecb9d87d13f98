package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciepi/portal-service/internal/domain"
)

// EnrollmentRepository handles persistence for course enrollments.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *domain.Enrollment) error
	GetByRegistrantAndCourse(ctx context.Context, registrantID, capacitacionID string) (*domain.Enrollment, error)
	ListByCapacitacion(ctx context.Context, capacitacionID string) ([]domain.Enrollment, error)
	CountByCapacitacion(ctx context.Context, capacitacionID string) (int, error)
}

type enrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepository{pool: pool}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	const query = `
        INSERT INTO enrollments (registrant_id, capacitacion_id)
        VALUES ($1,$2)
        ON CONFLICT (registrant_id, capacitacion_id) DO NOTHING
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		enrollment.RegistrantID,
		enrollment.CapacitacionID,
	).Scan(&enrollment.ID, &enrollment.CreatedAt)
}

func (r *enrollmentRepository) GetByRegistrantAndCourse(ctx context.Context, registrantID, capacitacionID string) (*domain.Enrollment, error) {
	const query = `
        SELECT id, registrant_id, capacitacion_id, created_at
        FROM enrollments WHERE registrant_id=$1 AND capacitacion_id=$2`
	var enrollment domain.Enrollment
	if err := r.pool.QueryRow(ctx, query, registrantID, capacitacionID).Scan(
		&enrollment.ID,
		&enrollment.RegistrantID,
		&enrollment.CapacitacionID,
		&enrollment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) ListByCapacitacion(ctx context.Context, capacitacionID string) ([]domain.Enrollment, error) {
	const query = `
        SELECT id, registrant_id, capacitacion_id, created_at
        FROM enrollments WHERE capacitacion_id=$1
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, capacitacionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []domain.Enrollment
	for rows.Next() {
		var enrollment domain.Enrollment
		if err := rows.Scan(
			&enrollment.ID,
			&enrollment.RegistrantID,
			&enrollment.CapacitacionID,
			&enrollment.CreatedAt,
		); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}
	return enrollments, rows.Err()
}

func (r *enrollmentRepository) CountByCapacitacion(ctx context.Context, capacitacionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE capacitacion_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, capacitacionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
