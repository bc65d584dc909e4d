// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// usernameはサービス全体で一意。PasswordHashはbcryptハッシュで、平文は保持しない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string // 任意
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity はアクセストークンから復元した認証済みユーザー情報を表す。
// リクエストスコープでのみ有効で、永続化しない。
type Identity struct {
	ID       string
	Username string
}

// RefreshToken はサーバー側で管理する不透明なリフレッシュトークンを表す。
// Tokenそのものがストアの検索キーになる。
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてトークンが期限切れかどうかを返す。
// ExpiresAtちょうどの時刻は期限切れとして扱う。
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
