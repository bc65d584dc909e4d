package refreshstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/authgate/internal/model"
)

// PostgresStore はrefresh_tokensテーブルによる実装。
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore はPostgresStoreを生成する。nowがnilの場合はtime.Nowを使用する。
func NewPostgresStore(db *sql.DB, now func() time.Time) *PostgresStore {
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{db: db, now: now}
}

// Put はトークンを登録する。
func (s *PostgresStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	now := s.now()
	query := `INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, token, userID, now.Add(ttl), now); err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// Get はトークンのレコードを返す。存在しない場合はnilを返す。
func (s *PostgresStore) Get(ctx context.Context, token string) (*model.RefreshToken, error) {
	query := `SELECT token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = $1`

	rt := &model.RefreshToken{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return rt, nil
}

// Consume はトークンを削除し、削除したレコードを返す。
// DELETE ... RETURNING は行ロックを取るため、同時に削除できるのは1トランザクションのみ。
func (s *PostgresStore) Consume(ctx context.Context, token string) (*model.RefreshToken, error) {
	query := `DELETE FROM refresh_tokens WHERE token = $1
		RETURNING token, user_id, expires_at, created_at`

	rt := &model.RefreshToken{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return rt, nil
}

// Delete はトークンを削除する。
func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのトークンを削除する。
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
