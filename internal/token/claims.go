// Package token はアクセストークン(JWT)の発行・検証とリフレッシュトークンの発行を提供する。
package token

import "github.com/golang-jwt/jwt/v5"

// Claims はアクセストークンのペイロード。
// subにユーザーID、usernameにユーザー名を格納する。
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID はsubクレームのユーザーIDを返す。
func (c *Claims) UserID() string {
	return c.Subject
}
