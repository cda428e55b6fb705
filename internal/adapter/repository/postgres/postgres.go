package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/swooosh/internal/entity"
)

const uniqueViolationErrCode = "23505"

const columns = `id, url, clicks, created_at, updated_at`

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

type urlDB struct {
	ID        string         `db:"id"`
	URL       sql.NullString `db:"url"`
	Clicks    int64          `db:"clicks"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:        u.ID,
		URL:       u.URL.String,
		Clicks:    u.Clicks,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// URLRepository stores short link records in the urls table.
// Every query runs under queryTimeout when it is positive.
type URLRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func NewURLRepository(db *sqlx.DB, queryTimeout time.Duration) *URLRepository {
	return &URLRepository{
		db:           db,
		queryTimeout: queryTimeout,
	}
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func (r *URLRepository) Save(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO urls(id, url) VALUES ($1, $2) RETURNING ` + columns

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, id, originalURL); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrIDExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) RetrieveByID(ctx context.Context, id string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByID"
	const query = `SELECT ` + columns + ` FROM urls WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

// IncrementClicks bumps the click counter in place and returns the updated record.
// Records without a destination are never counted and report entity.ErrURLNotFound.
func (r *URLRepository) IncrementClicks(ctx context.Context, id string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.IncrementClicks"
	const query = `UPDATE urls SET clicks = clicks + 1, updated_at = NOW() WHERE id = $1 AND url <> '' RETURNING ` + columns

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update clicks in urls table: %w", op, err)
	}

	return url.toEntity(), nil
}
