package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/token"
)

// mockVerifier はAccessTokenVerifierのモック実装。
type mockVerifier struct {
	verifyFn func(tokenString string) (*token.Claims, bool)
}

func (m *mockVerifier) Verify(tokenString string) (*token.Claims, bool) {
	return m.verifyFn(tokenString)
}

// nopPutter はリフレッシュトークンを保存しないテスト用ストア。
type nopPutter struct{}

func (nopPutter) Put(context.Context, string, string, time.Duration) error { return nil }

func newMockVerifier(valid string) *mockVerifier {
	return &mockVerifier{
		verifyFn: func(tokenString string) (*token.Claims, bool) {
			if tokenString != valid {
				return nil, false
			}
			return &token.Claims{
				Username:         "alice",
				RegisteredClaims: jwt.RegisteredClaims{Subject: "user-alice"},
			}, true
		},
	}
}

func TestBearerAuthMiddleware_ErrorStates(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", model.ErrCodeMissingAuthorization},
		{"wrong scheme", "Basic abc", model.ErrCodeInvalidAuthorizationFormat},
		{"no token", "Bearer", model.ErrCodeInvalidAuthorizationFormat},
		{"empty token", "Bearer ", model.ErrCodeInvalidAuthorizationFormat},
		{"extra part", "Bearer good-token extra", model.ErrCodeInvalidAuthorizationFormat},
		{"invalid token", "Bearer bad-token", model.ErrCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := NewBearerAuthMiddleware(newMockVerifier("good-token"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
			}
			if handlerCalled {
				t.Error("handler should not be called")
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Category != model.CategoryAuth {
				t.Errorf("category = %q, want %q", body.Category, model.CategoryAuth)
			}
		})
	}
}

func TestBearerAuthMiddleware_ValidToken_InjectsIdentity(t *testing.T) {
	var got model.Identity
	handler := NewBearerAuthMiddleware(newMockVerifier("good-token"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := IdentityFromContext(r.Context())
		if err != nil {
			t.Errorf("IdentityFromContext error: %v", err)
		}
		got = identity
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"Bearer good-token", "bearer good-token"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("%q: status = %d, want %d", header, w.Result().StatusCode, http.StatusOK)
		}
		if got.ID != "user-alice" || got.Username != "alice" {
			t.Errorf("%q: identity = %+v", header, got)
		}
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error when identity is absent")
	}
}

func TestBearerAuthMiddleware_RealVerifier(t *testing.T) {
	secret := []byte("middleware-test-secret")
	issuer, err := token.NewIssuer(token.IssuerConfig{
		Secret:     secret,
		Issuer:     "authgate",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, nopPutter{})
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}

	access, err := issuer.IssueAccessToken(&model.User{ID: "u-1", Username: "bob"})
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	handler := NewBearerAuthMiddleware(token.NewVerifier(secret, "authgate", nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Write([]byte(userID))
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if w.Body.String() != "u-1" {
		t.Errorf("user id = %q, want %q", w.Body.String(), "u-1")
	}
}
