package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciepi/portal-service/internal/domain"
)

// ContactRepository handles persistence for contact messages.
type ContactRepository interface {
	Create(ctx context.Context, message *domain.ContactMessage) error
	List(ctx context.Context, limit, offset int) ([]domain.ContactMessage, error)
}

type contactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository instantiates the repository.
func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &contactRepository{pool: pool}
}

func (r *contactRepository) Create(ctx context.Context, message *domain.ContactMessage) error {
	const query = `
        INSERT INTO contact_messages (name, email, subject, body)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		message.Name,
		message.Email,
		message.Subject,
		message.Body,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *contactRepository) List(ctx context.Context, limit, offset int) ([]domain.ContactMessage, error) {
	const query = `
        SELECT id, name, email, subject, body, created_at
        FROM contact_messages
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ContactMessage
	for rows.Next() {
		var message domain.ContactMessage
		if err := rows.Scan(
			&message.ID,
			&message.Name,
			&message.Email,
			&message.Subject,
			&message.Body,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
