package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/authgate/internal/model"
)

// MemoryItemRepo はプロセス内メモリに保持するアイテムリポジトリ。
// 作成順を保持するためスライスで管理する。
type MemoryItemRepo struct {
	mu    sync.RWMutex
	items []*model.Item
}

// NewMemoryItemRepo はMemoryItemRepoを生成する。
// 引数で渡したアイテムを初期データとして保持する。
func NewMemoryItemRepo(seed ...*model.Item) *MemoryItemRepo {
	r := &MemoryItemRepo{}
	for _, item := range seed {
		r.items = append(r.items, cloneItem(item))
	}
	return r
}

// SeedItems は所有者なしの公開シードデータを返す。
// マイグレーション000002で投入する内容と同じ。
func SeedItems() []*model.Item {
	now := time.Now()
	return []*model.Item{
		{ID: "1", Text: "first item", CreatedAt: now, UpdatedAt: now},
		{ID: "2", Text: "second item", CreatedAt: now, UpdatedAt: now},
	}
}

// List は全アイテムを作成順に返す。
func (r *MemoryItemRepo) List(ctx context.Context) ([]*model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*model.Item, len(r.items))
	for i, item := range r.items {
		items[i] = cloneItem(item)
	}
	return items, nil
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *MemoryItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if idx := r.indexOf(id); idx >= 0 {
		return cloneItem(r.items[idx]), nil
	}
	return nil, nil
}

// Create はアイテムを作成する。
func (r *MemoryItemRepo) Create(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, cloneItem(item))
	return nil
}

// Update はアイテムのテキストと更新日時を上書きする。
func (r *MemoryItemRepo) Update(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(item.ID)
	if idx < 0 {
		return ErrItemNotFound
	}
	updated := cloneItem(r.items[idx])
	updated.Text = item.Text
	updated.UpdatedAt = item.UpdatedAt
	r.items[idx] = updated
	return nil
}

// Delete は指定IDのアイテムを削除する。
func (r *MemoryItemRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	return nil
}

// indexOf は呼び出し元がロックを保持している前提で位置を返す。見つからない場合は-1。
func (r *MemoryItemRepo) indexOf(id string) int {
	for i, item := range r.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func cloneItem(item *model.Item) *model.Item {
	copied := *item
	if item.OwnerID != nil {
		owner := *item.OwnerID
		copied.OwnerID = &owner
	}
	return &copied
}

// compile-time interface check
var _ ItemRepository = (*MemoryItemRepo)(nil)
