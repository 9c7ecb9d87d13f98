package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciepi/portal-service/internal/domain"
)

// RegistrantRepository handles persistence for citizen registrants.
type RegistrantRepository interface {
	Create(ctx context.Context, registrant *domain.Registrant) error
	GetByID(ctx context.Context, id string) (*domain.Registrant, error)
	GetByCedula(ctx context.Context, cedula string) (*domain.Registrant, error)
	GetByEmail(ctx context.Context, email string) (*domain.Registrant, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
	UpdateEmail(ctx context.Context, id, email string) error
}

type registrantRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrantRepository instantiates the repository.
func NewRegistrantRepository(pool *pgxpool.Pool) RegistrantRepository {
	return &registrantRepository{pool: pool}
}

func (r *registrantRepository) Create(ctx context.Context, registrant *domain.Registrant) error {
	const query = `
        INSERT INTO registrants (cedula, first_name, last_name, email, phone, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		registrant.Cedula,
		registrant.FirstName,
		registrant.LastName,
		registrant.Email,
		registrant.Phone,
		registrant.Status,
	).Scan(&registrant.ID, &registrant.CreatedAt, &registrant.UpdatedAt)
}

func (r *registrantRepository) GetByID(ctx context.Context, id string) (*domain.Registrant, error) {
	const query = `
        SELECT id, cedula, first_name, last_name, email, phone, status, verified_at, created_at, updated_at
        FROM registrants WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *registrantRepository) GetByCedula(ctx context.Context, cedula string) (*domain.Registrant, error) {
	const query = `
        SELECT id, cedula, first_name, last_name, email, phone, status, verified_at, created_at, updated_at
        FROM registrants WHERE cedula=$1`
	return r.fetchSingle(ctx, query, cedula)
}

func (r *registrantRepository) GetByEmail(ctx context.Context, email string) (*domain.Registrant, error) {
	const query = `
        SELECT id, cedula, first_name, last_name, email, phone, status, verified_at, created_at, updated_at
        FROM registrants WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *registrantRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE registrants SET status=$1, verified_at=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.RegistrantStatusVerified, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *registrantRepository) UpdateEmail(ctx context.Context, id, email string) error {
	const query = `
        UPDATE registrants SET email=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, email, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *registrantRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Registrant, error) {
	var registrant domain.Registrant
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&registrant.ID,
		&registrant.Cedula,
		&registrant.FirstName,
		&registrant.LastName,
		&registrant.Email,
		&registrant.Phone,
		&registrant.Status,
		&registrant.VerifiedAt,
		&registrant.CreatedAt,
		&registrant.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &registrant, nil
}
