package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciepi/portal-service/internal/domain"
)

// BlogFilter defines query params for post listing.
type BlogFilter struct {
	State    *domain.BlogState
	AuthorID *string
	Limit    int
	Offset   int
}

// BlogRepository handles persistence for blog posts.
type BlogRepository interface {
	Create(ctx context.Context, post *domain.BlogPost) error
	GetByID(ctx context.Context, id string) (*domain.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*domain.BlogPost, error)
	List(ctx context.Context, filter BlogFilter) ([]domain.BlogPost, error)
}

type blogRepository struct {
	pool *pgxpool.Pool
}

// NewBlogRepository instantiates the repository.
func NewBlogRepository(pool *pgxpool.Pool) BlogRepository {
	return &blogRepository{pool: pool}
}

func (r *blogRepository) Create(ctx context.Context, post *domain.BlogPost) error {
	const query = `
        INSERT INTO blog_posts (title, slug, summary, body, author_id, state, published_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		post.Title,
		post.Slug,
		post.Summary,
		post.Body,
		post.AuthorID,
		post.State,
		post.PublishedAt,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
}

func (r *blogRepository) GetByID(ctx context.Context, id string) (*domain.BlogPost, error) {
	const query = `
        SELECT id, title, slug, summary, body, author_id, state, published_at, created_at, updated_at
        FROM blog_posts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *blogRepository) GetBySlug(ctx context.Context, slug string) (*domain.BlogPost, error) {
	const query = `
        SELECT id, title, slug, summary, body, author_id, state, published_at, created_at, updated_at
        FROM blog_posts WHERE slug=$1`
	return r.fetchSingle(ctx, query, slug)
}

func (r *blogRepository) List(ctx context.Context, filter BlogFilter) ([]domain.BlogPost, error) {
	clauses := []string{}
	args := []any{}
	idx := 1

	if filter.State != nil {
		clauses = append(clauses, fmt.Sprintf("state=$%d", idx))
		args = append(args, *filter.State)
		idx++
	}
	if filter.AuthorID != nil {
		clauses = append(clauses, fmt.Sprintf("author_id=$%d", idx))
		args = append(args, *filter.AuthorID)
		idx++
	}

	query := `
        SELECT id, title, slug, summary, body, author_id, state, published_at, created_at, updated_at
        FROM blog_posts`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.BlogPost
	for rows.Next() {
		var post domain.BlogPost
		if err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Slug,
			&post.Summary,
			&post.Body,
			&post.AuthorID,
			&post.State,
			&post.PublishedAt,
			&post.CreatedAt,
			&post.UpdatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *blogRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.BlogPost, error) {
	var post domain.BlogPost
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Summary,
		&post.Body,
		&post.AuthorID,
		&post.State,
		&post.PublishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}
