// Package model はドメインモデルを定義する。
package model

import "time"

// Item は所有者チェック付きCRUDの対象となるリソースを表す。
// OwnerIDがnilの場合は所有者なし（シードデータ）で、どの呼び出し元とも一致しない。
type Item struct {
	ID        string
	Text      string
	OwnerID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwnedBy は指定ユーザーがアイテムの所有者かどうかを返す。
// 所有者なしの場合、および空のユーザーIDに対しては常にfalseを返す。
func (i *Item) IsOwnedBy(userID string) bool {
	if i.OwnerID == nil || userID == "" {
		return false
	}
	return *i.OwnerID == userID
}
