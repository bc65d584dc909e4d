package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/password"
)

// ErrInvalidCredentials はユーザー不在とパスワード不一致の両方を表す。
// 呼び出し元に両者の区別を伝えない。
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserFinder はユーザー検索に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
// *password.Hasher はこのインターフェースを満たす。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hashed, plain string) error
	CompareDummy(plain string)
}

// CredentialVerifier はusernameとパスワードの組を検証する。
// 読み取り専用で副作用を持たない。
type CredentialVerifier struct {
	users  UserFinder
	hasher PasswordHasher
}

// NewCredentialVerifier はCredentialVerifierを生成する。
func NewCredentialVerifier(users UserFinder, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify は認証情報を検証し、一致したユーザーを返す。
// ユーザー不在・パスワード不一致はどちらもErrInvalidCredentialsを返す。
// ユーザー不在時もダミーハッシュと照合し、応答時間からユーザーの存在を推測されないようにする。
func (v *CredentialVerifier) Verify(ctx context.Context, username, plain string) (*model.User, error) {
	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		v.hasher.CompareDummy(plain)
		return nil, ErrInvalidCredentials
	}

	if err := v.hasher.Compare(user.PasswordHash, plain); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	return user, nil
}
