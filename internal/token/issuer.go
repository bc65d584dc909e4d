package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/authgate/internal/model"
)

// RefreshTokenPutter はリフレッシュトークンの登録に必要なインターフェース。
// refreshstore.Storeの部分集合として定義する。
type RefreshTokenPutter interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
}

// IssuerConfig はトークン発行の設定。
type IssuerConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now は現在時刻の取得関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// AccessToken は発行したアクセストークンを表す。
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn int // 有効期間（秒）
}

// Issuer はアクセストークンとリフレッシュトークンを発行する。
type Issuer struct {
	config IssuerConfig
	store  RefreshTokenPutter
}

// NewIssuer はIssuerを生成する。
func NewIssuer(cfg IssuerConfig, store RefreshTokenPutter) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if store == nil {
		return nil, errors.New("refresh token store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{config: cfg, store: store}, nil
}

// IssueAccessToken はHS256で署名したアクセストークンを発行する。
// jtiを毎回生成するため、同一秒内の発行でもトークン文字列は一意になる。
func (i *Issuer) IssueAccessToken(user *model.User) (*AccessToken, error) {
	now := i.config.Now()
	expiresAt := now.Add(i.config.AccessTTL)

	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AccessToken{
		Token:     signed,
		ExpiresAt: expiresAt,
		ExpiresIn: int(i.config.AccessTTL / time.Second),
	}, nil
}

// IssueRefreshToken は不透明なリフレッシュトークンを発行し、ストアに登録する。
// トークンはUUIDv4（122ビットの乱数）で、ストアの検索キーになる。
func (i *Issuer) IssueRefreshToken(ctx context.Context, userID string) (*model.RefreshToken, error) {
	now := i.config.Now()
	rt := &model.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(i.config.RefreshTTL),
		CreatedAt: now,
	}

	if err := i.store.Put(ctx, rt.Token, rt.UserID, i.config.RefreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rt, nil
}

// AccessTTL はアクセストークンの有効期間を返す。
func (i *Issuer) AccessTTL() time.Duration {
	return i.config.AccessTTL
}

// RefreshTTL はリフレッシュトークンの有効期間を返す。
func (i *Issuer) RefreshTTL() time.Duration {
	return i.config.RefreshTTL
}
