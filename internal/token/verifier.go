package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier はアクセストークンの署名と有効期限を検証する。
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier はVerifierを生成する。
// issuerが空でない場合はissクレームの一致も検証する。nowがnilの場合はtime.Nowを使用する。
func NewVerifier(secret []byte, issuer string, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}

	return &Verifier{
		secret: secret,
		parser: jwt.NewParser(options...),
	}
}

// Verify はトークン文字列を検証し、クレームを返す。
// 構造不正・署名不一致・期限切れ・アルゴリズム不一致はすべて (nil, false) になり、
// エラーとして呼び出し元に伝播しない。
func (v *Verifier) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	if claims.Subject == "" {
		return nil, false
	}

	return claims, true
}
