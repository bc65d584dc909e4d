// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// identityContextKey はリクエストコンテキストに認証済みユーザー情報を格納するためのキー。
	identityContextKey = contextKey("identity")

	// requestStateContextKey はロギングミドルウェアが用意するリクエスト状態のキー。
	requestStateContextKey = contextKey("request_state")
)

// requestState は内側のミドルウェアで判明した情報を外側のミドルウェアへ渡す。
type requestState struct {
	userID string
}

// AccessTokenVerifier はアクセストークン検証のインターフェース。
// *token.Verifier はこのインターフェースを満たす。
type AccessTokenVerifier interface {
	Verify(tokenString string) (*token.Claims, bool)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
//
//	ヘッダーなし → 401 MISSING_AUTHORIZATION
//	"Bearer <token>" 形式でない → 401 INVALID_AUTHORIZATION_FORMAT
//	署名不一致・期限切れ → 401 INVALID_TOKEN
//	有効 → 認証済みユーザー情報をコンテキストに注入して次へ
func NewBearerAuthMiddleware(verifier AccessTokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingAuthorizationError())
				return
			}

			tokenString, ok := parseBearer(header)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidAuthorizationFormatError())
				return
			}

			claims, ok := verifier.Verify(tokenString)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			ctx := ContextWithIdentity(r.Context(), model.Identity{
				ID:       claims.UserID(),
				Username: claims.Username,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseBearer は "Bearer <token>" からトークン部分を取り出す。
// スキーム名は大文字小文字を区別しない。
func parseBearer(header string) (string, bool) {
	scheme, tokenString, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	if tokenString == "" || strings.ContainsAny(tokenString, " \t") {
		return "", false
	}
	return tokenString, true
}

// IdentityFromContext はリクエストコンテキストから認証済みユーザー情報を取得する。
// Bearer認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok || identity.ID == "" {
		return model.Identity{}, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	return identity.ID, nil
}

// ContextWithIdentity はコンテキストに認証済みユーザー情報を注入する。
// ロギングミドルウェアの内側で呼ばれた場合、アクセスログにもユーザーIDを記録させる。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	if state, ok := ctx.Value(requestStateContextKey).(*requestState); ok {
		state.userID = identity.ID
	}
	return context.WithValue(ctx, identityContextKey, identity)
}
