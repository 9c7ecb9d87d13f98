package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciepi/portal-service/internal/domain"
)

// ErrDuplicateToken reports a token value collision on insert. Callers
// retry generation; with 256-bit random tokens this should never fire.
var ErrDuplicateToken = errors.New("duplicate token value")

// VerificationTokenRepository manages verification token persistence.
//
// Issue takes a per-pair advisory lock, supersedes the active tokens of
// the (subject, purpose) pair and inserts the new row inside one
// transaction, so two concurrent issuances cannot both leave an active
// token. Consume is a single conditional update
// whose affected-row count decides the winner between racing callers.
type VerificationTokenRepository interface {
	Issue(ctx context.Context, token *domain.VerificationToken) error
	InvalidateActive(ctx context.Context, subjectID string, purpose domain.TokenPurpose, now time.Time) (int64, error)
	GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error)
	Consume(ctx context.Context, token string, usedFromIP *string, now time.Time) (*domain.VerificationToken, error)
	ListBySubject(ctx context.Context, subjectID string, purpose domain.TokenPurpose) ([]domain.VerificationToken, error)
}

type verificationTokenRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationTokenRepository instantiates the repository.
func NewVerificationTokenRepository(pool *pgxpool.Pool) VerificationTokenRepository {
	return &verificationTokenRepository{pool: pool}
}

const tokenColumns = `id, token, subject_id, purpose, contact_address, metadata,
               created_at, expires_at, used_at, superseded_at, issuing_ip, used_from_ip`

const supersedeQuery = `
        UPDATE verification_tokens SET superseded_at=$1
        WHERE subject_id=$2 AND purpose=$3 AND used_at IS NULL AND superseded_at IS NULL AND expires_at > $1`

func (r *verificationTokenRepository) Issue(ctx context.Context, token *domain.VerificationToken) error {
	metadata, err := json.Marshal(token.Metadata)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialize issuance per (subject, purpose). Without the lock two
	// transactions can both see zero active rows at READ COMMITTED, both
	// insert, and leave two active tokens.
	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`
	if _, err := tx.Exec(ctx, lockQuery, token.SubjectID, string(token.Purpose)); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, supersedeQuery, token.CreatedAt, token.SubjectID, token.Purpose); err != nil {
		return err
	}

	const insertQuery = `
        INSERT INTO verification_tokens (token, subject_id, purpose, contact_address, metadata, created_at, expires_at, issuing_ip)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	if err := tx.QueryRow(ctx, insertQuery,
		token.Token,
		token.SubjectID,
		token.Purpose,
		token.ContactAddress,
		metadata,
		token.CreatedAt,
		token.ExpiresAt,
		token.IssuingIP,
	).Scan(&token.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateToken
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *verificationTokenRepository) InvalidateActive(ctx context.Context, subjectID string, purpose domain.TokenPurpose, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, supersedeQuery, now, subjectID, purpose)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *verificationTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.VerificationToken, error) {
	const query = `
        SELECT ` + tokenColumns + `
        FROM verification_tokens WHERE token=$1`
	return r.scanToken(r.pool.QueryRow(ctx, query, tokenStr))
}

// Consume atomically marks the token used. The conditional guard is the
// correctness-critical primitive: a token already used, superseded, or past
// expiry matches zero rows and the caller gets pgx.ErrNoRows.
func (r *verificationTokenRepository) Consume(ctx context.Context, tokenStr string, usedFromIP *string, now time.Time) (*domain.VerificationToken, error) {
	const query = `
        UPDATE verification_tokens SET used_at=$1, used_from_ip=$2
        WHERE token=$3 AND used_at IS NULL AND superseded_at IS NULL AND expires_at > $1
        RETURNING ` + tokenColumns
	return r.scanToken(r.pool.QueryRow(ctx, query, now, usedFromIP, tokenStr))
}

func (r *verificationTokenRepository) ListBySubject(ctx context.Context, subjectID string, purpose domain.TokenPurpose) ([]domain.VerificationToken, error) {
	const query = `
        SELECT ` + tokenColumns + `
        FROM verification_tokens
        WHERE subject_id=$1 AND purpose=$2
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, subjectID, purpose)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.VerificationToken
	for rows.Next() {
		token, err := r.scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}
	return tokens, rows.Err()
}

func (r *verificationTokenRepository) scanToken(row pgx.Row) (*domain.VerificationToken, error) {
	var token domain.VerificationToken
	var metadata []byte
	if err := row.Scan(
		&token.ID,
		&token.Token,
		&token.SubjectID,
		&token.Purpose,
		&token.ContactAddress,
		&metadata,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.SupersededAt,
		&token.IssuingIP,
		&token.UsedFromIP,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &token.Metadata); err != nil {
			return nil, err
		}
	}
	return &token, nil
}
