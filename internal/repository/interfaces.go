// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/authgate/internal/model"
)

// ErrDuplicateUsername はusernameの一意制約違反を表す。
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はusernameでユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// ExistsByUsername はusernameが登録済みかどうかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create はユーザーを作成する。
	// usernameが重複する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error
}

// ItemRepository はアイテムデータの永続化インターフェース。
// 1件ごとの更新・削除はアトミックに行われ、途中状態は観測されない。
type ItemRepository interface {
	// List は全アイテムを作成順に返す。
	List(ctx context.Context) ([]*model.Item, error)

	// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Item, error)

	// Create はアイテムを作成する。
	Create(ctx context.Context, item *model.Item) error

	// Update はアイテムのテキストと更新日時を上書きする。
	// 対象が存在しない場合はErrItemNotFoundを返す。
	Update(ctx context.Context, item *model.Item) error

	// Delete は指定IDのアイテムを削除する。
	// 対象が存在しない場合はErrItemNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// ErrItemNotFound は更新・削除対象のアイテムが存在しないことを表す。
var ErrItemNotFound = errors.New("item not found")
