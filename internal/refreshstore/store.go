// Package refreshstore はリフレッシュトークンのサーバー側ストアを提供する。
//
// ストアはトークン文字列をキーに {userID, expiresAt} を保持する。
// 期限切れの判定は読み出し側で行い、Getは期限切れのレコードもそのまま返す。
// 期限切れレコードの掃除はDeleteExpiredで明示的に行う。
package refreshstore

import (
	"context"
	"time"

	"github.com/hitoshi/authgate/internal/model"
)

// Store はリフレッシュトークンストアのインターフェース。
// 実装は複数goroutineからの同時呼び出しに対して安全でなければならない。
type Store interface {
	// Put はトークンを登録する。有効期限は現在時刻+ttl。
	Put(ctx context.Context, token, userID string, ttl time.Duration) error

	// Get はトークンのレコードを返す。存在しない場合はnilを返す。
	Get(ctx context.Context, token string) (*model.RefreshToken, error)

	// Consume はトークンを取り出すと同時に削除する。存在しない場合はnilを返す。
	// 同じトークンに対する同時呼び出しでは、レコードを受け取るのは1つだけ。
	Consume(ctx context.Context, token string) (*model.RefreshToken, error)

	// Delete はトークンを削除する。存在しない場合も成功として扱う。
	Delete(ctx context.Context, token string) error

	// DeleteExpired は期限切れのトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
