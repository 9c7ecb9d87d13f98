package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciepi/portal-service/internal/domain"
)

// CapacitacionFilter defines query params for course listing.
type CapacitacionFilter struct {
	Status   *domain.CapacitacionStatus
	Modality *string
	Limit    int
	Offset   int
}

// CapacitacionRepository handles persistence for training courses.
type CapacitacionRepository interface {
	Create(ctx context.Context, capacitacion *domain.Capacitacion) error
	Update(ctx context.Context, capacitacion *domain.Capacitacion) error
	GetByID(ctx context.Context, id string) (*domain.Capacitacion, error)
	List(ctx context.Context, filter CapacitacionFilter) ([]domain.Capacitacion, error)
}

type capacitacionRepository struct {
	pool *pgxpool.Pool
}

// NewCapacitacionRepository instantiates the repository.
func NewCapacitacionRepository(pool *pgxpool.Pool) CapacitacionRepository {
	return &capacitacionRepository{pool: pool}
}

func (r *capacitacionRepository) Create(ctx context.Context, capacitacion *domain.Capacitacion) error {
	const query = `
        INSERT INTO capacitaciones (title, description, modality, location, starts_at, ends_at, capacity, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		capacitacion.Title,
		capacitacion.Description,
		capacitacion.Modality,
		capacitacion.Location,
		capacitacion.StartsAt,
		capacitacion.EndsAt,
		capacitacion.Capacity,
		capacitacion.Status,
	).Scan(&capacitacion.ID, &capacitacion.CreatedAt, &capacitacion.UpdatedAt)
}

func (r *capacitacionRepository) Update(ctx context.Context, capacitacion *domain.Capacitacion) error {
	const query = `
        UPDATE capacitaciones
        SET title=$1, description=$2, modality=$3, location=$4, starts_at=$5, ends_at=$6, capacity=$7, status=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		capacitacion.Title,
		capacitacion.Description,
		capacitacion.Modality,
		capacitacion.Location,
		capacitacion.StartsAt,
		capacitacion.EndsAt,
		capacitacion.Capacity,
		capacitacion.Status,
		capacitacion.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *capacitacionRepository) GetByID(ctx context.Context, id string) (*domain.Capacitacion, error) {
	const query = `
        SELECT id, title, description, modality, location, starts_at, ends_at, capacity, status, created_at, updated_at
        FROM capacitaciones WHERE id=$1`
	var capacitacion domain.Capacitacion
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&capacitacion.ID,
		&capacitacion.Title,
		&capacitacion.Description,
		&capacitacion.Modality,
		&capacitacion.Location,
		&capacitacion.StartsAt,
		&capacitacion.EndsAt,
		&capacitacion.Capacity,
		&capacitacion.Status,
		&capacitacion.CreatedAt,
		&capacitacion.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &capacitacion, nil
}

func (r *capacitacionRepository) List(ctx context.Context, filter CapacitacionFilter) ([]domain.Capacitacion, error) {
	clauses := []string{}
	args := []any{}
	idx := 1

	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status=$%d", idx))
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Modality != nil {
		clauses = append(clauses, fmt.Sprintf("modality=$%d", idx))
		args = append(args, *filter.Modality)
		idx++
	}

	query := `
        SELECT id, title, description, modality, location, starts_at, ends_at, capacity, status, created_at, updated_at
        FROM capacitaciones`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY starts_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capacitaciones []domain.Capacitacion
	for rows.Next() {
		var capacitacion domain.Capacitacion
		if err := rows.Scan(
			&capacitacion.ID,
			&capacitacion.Title,
			&capacitacion.Description,
			&capacitacion.Modality,
			&capacitacion.Location,
			&capacitacion.StartsAt,
			&capacitacion.EndsAt,
			&capacitacion.Capacity,
			&capacitacion.Status,
			&capacitacion.CreatedAt,
			&capacitacion.UpdatedAt,
		); err != nil {
			return nil, err
		}
		capacitaciones = append(capacitaciones, capacitacion)
	}
	return capacitaciones, rows.Err()
}
