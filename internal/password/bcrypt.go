// Package password はパスワードのハッシュ化と照合を提供する。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost は既定のbcryptコスト。
const DefaultCost = 10

// MaxBytes はbcryptがハッシュ化できるパスワードの最大バイト数。
const MaxBytes = 72

// ErrMismatch はパスワードがハッシュと一致しないことを表す。
var ErrMismatch = errors.New("password does not match")

// ErrTooLong はパスワードがMaxBytesを超えることを表す。
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher はbcryptによるパスワードハッシュ化を行う。
// 生成後は不変で、複数goroutineから同時に利用できる。
type Hasher struct {
	cost int

	// ユーザー不在時の照合に使うダミーハッシュ
	dummy []byte
}

// NewHasher はHasherを生成する。
// costがbcryptの許容範囲外の場合はエラーを返す。
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d: %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("authgate-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash は平文パスワードをソルト付きでハッシュ化する。
func (h *Hasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare は平文パスワードとハッシュを定数時間で照合する。
// 不一致の場合はErrMismatchを返す。
func (h *Hasher) Compare(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("failed to compare password: %w", err)
}

// CompareDummy はユーザーが存在しない場合に呼び出し、
// 実在ユーザーの照合と同程度の時間を消費する。結果は常に破棄される。
func (h *Hasher) CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

// Cost は設定されたbcryptコストを返す。
func (h *Hasher) Cost() int {
	return h.cost
}
