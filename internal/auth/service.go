// Package auth はユーザー登録・ログイン・トークン更新・ログアウトの認証フローを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/password"
	"github.com/hitoshi/authgate/internal/refreshstore"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/token"
)

// MaxUsernameLength はusernameの最大文字数。usersテーブルのVARCHAR(64)に合わせる。
const MaxUsernameLength = 64

// TokenIssuer はトークン発行のインターフェース。
// *token.Issuer はこのインターフェースを満たす。
type TokenIssuer interface {
	IssueAccessToken(user *model.User) (*token.AccessToken, error)
	IssueRefreshToken(ctx context.Context, userID string) (*model.RefreshToken, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// RefreshRotate がtrueの場合、トークン更新のたびにリフレッシュトークンを再発行し旧トークンを破棄する。
	RefreshRotate bool

	// Now は現在時刻の取得関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// LoginResult はログイン成功時に発行したトークンの組。
type LoginResult struct {
	User         *model.User
	AccessToken  *token.AccessToken
	RefreshToken *model.RefreshToken
}

// RefreshResult はトークン更新の結果。
// RefreshTokenはローテーション時のみ設定され、それ以外はnil。
type RefreshResult struct {
	AccessToken  *token.AccessToken
	RefreshToken *model.RefreshToken
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	verifier *CredentialVerifier
	issuer   TokenIssuer
	store    refreshstore.Store
	metrics  metrics.MetricsCollector
	config   ServiceConfig
}

// NewService はServiceを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	issuer TokenIssuer,
	store refreshstore.Store,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		verifier: NewCredentialVerifier(users, hasher),
		issuer:   issuer,
		store:    store,
		metrics:  collector,
		config:   config,
	}
}

// Register はユーザーを登録する。
// usernameが既に使われている場合はUSERNAME_TAKENを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if missing := missingFields(in.Username, in.Password); len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}
	if utf8.RuneCountInString(in.Username) > MaxUsernameLength {
		return nil, model.NewUsernameTooLongError(MaxUsernameLength)
	}
	if len(in.Password) > password.MaxBytes {
		return nil, model.NewPasswordTooLongError(password.MaxBytes)
	}

	exists, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.NewUsernameTakenError()
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, model.NewPasswordTooLongError(password.MaxBytes)
		}
		return nil, err
	}

	now := s.config.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hashed,
		Email:        in.Email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// 存在確認と作成の間に同名ユーザーが登録された場合
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordRegistration()
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login は認証情報を検証し、アクセストークンとリフレッシュトークンを発行する。
// ログインのたびに新しいリフレッシュトークンを発行し、既存のトークンは無効化しない。
func (s *Service) Login(ctx context.Context, username, plain string) (*LoginResult, error) {
	if missing := missingFields(username, plain); len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}

	user, err := s.verifier.Verify(ctx, username, plain)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordLoginFailure()
			slog.Warn("login failed", slog.String("username", username))
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLoginSuccess()
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Refresh はリフレッシュトークンから新しいアクセストークンを発行する。
//
// 状態遷移:
//
//	未送信 → NO_REFRESH_TOKEN
//	未登録 → INVALID_REFRESH_TOKEN
//	期限切れ → 削除して REFRESH_TOKEN_EXPIRED
//	ユーザー不在 → 削除して USER_NOT_FOUND
//	有効 → アクセストークン発行（ローテーション有効時は取り出しと同時に旧トークンを削除して再発行）
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		s.metrics.RecordRefresh(metrics.RefreshMissing)
		return nil, model.NewNoRefreshTokenError()
	}

	// ローテーション有効時はストアから取り出した時点で旧トークンは無効になる。
	// 同じトークンによる同時リクエストのうち、レコードを受け取れるのは1つだけ。
	var (
		record *model.RefreshToken
		err    error
	)
	if s.config.RefreshRotate {
		record, err = s.store.Consume(ctx, refreshToken)
	} else {
		record, err = s.store.Get(ctx, refreshToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if record == nil {
		s.metrics.RecordRefresh(metrics.RefreshInvalid)
		return nil, model.NewInvalidRefreshTokenError()
	}

	if record.Expired(s.config.Now()) {
		if err := s.discard(ctx, refreshToken); err != nil {
			return nil, fmt.Errorf("failed to delete expired refresh token: %w", err)
		}
		s.metrics.RecordRefresh(metrics.RefreshExpired)
		return nil, model.NewRefreshTokenExpiredError()
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		if err := s.discard(ctx, refreshToken); err != nil {
			return nil, fmt.Errorf("failed to delete orphan refresh token: %w", err)
		}
		s.metrics.RecordRefresh(metrics.RefreshUserNotFound)
		return nil, model.NewUserNotFoundError()
	}

	result := &RefreshResult{}

	if s.config.RefreshRotate {
		rotated, err := s.issueRefreshToken(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		result.RefreshToken = rotated
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	result.AccessToken = access

	s.metrics.RecordRefresh(metrics.RefreshSuccess)
	slog.Info("access token refreshed",
		slog.String("user_id", user.ID),
		slog.Bool("rotated", s.config.RefreshRotate),
	)

	return result, nil
}

// Logout はリフレッシュトークンをストアから削除する。
// トークンが空または未登録の場合も成功として扱う。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.store.Delete(ctx, refreshToken); err != nil {
		s.metrics.RecordLogout(metrics.LogoutFailure)
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	s.metrics.RecordLogout(metrics.LogoutSuccess)
	slog.Info("user logged out")
	return nil
}

// GetCurrentUser は認証済みユーザーの情報を返す。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// discard は使用不能になったリフレッシュトークンをストアから削除する。
// ローテーション有効時はConsumeで削除済みのため何もしない。
func (s *Service) discard(ctx context.Context, refreshToken string) error {
	if s.config.RefreshRotate {
		return nil
	}
	return s.store.Delete(ctx, refreshToken)
}

func (s *Service) issueAccessToken(user *model.User) (*token.AccessToken, error) {
	access, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	s.metrics.RecordTokenIssued(metrics.TokenKindAccess)
	return access, nil
}

func (s *Service) issueRefreshToken(ctx context.Context, userID string) (*model.RefreshToken, error) {
	refresh, err := s.issuer.IssueRefreshToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	s.metrics.RecordTokenIssued(metrics.TokenKindRefresh)
	return refresh, nil
}

// missingFields は未入力の必須項目名を返す。
func missingFields(username, plain string) []string {
	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if plain == "" {
		missing = append(missing, "password")
	}
	return missing
}
