// Package item はアイテムの管理機能を提供する。
// 一覧は公開、変更・削除は所有者のみに制限する。
package item

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

// ItemService はアイテムのCRUDと所有者チェックを行うサービス。
type ItemService struct {
	itemRepo repository.ItemRepository
	now      func() time.Time
}

// NewItemService はItemServiceの新しいインスタンスを生成する。
func NewItemService(itemRepo repository.ItemRepository) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		now:      time.Now,
	}
}

// ListItems は全アイテムを返す。認証不要。
func (s *ItemService) ListItems(ctx context.Context) ([]*model.Item, error) {
	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// GetItem はアイテムを返す。認証済みであれば所有者以外も参照できる。
func (s *ItemService) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	return item, nil
}

// CreateItem は呼び出しユーザーを所有者としてアイテムを作成する。
func (s *ItemService) CreateItem(ctx context.Context, userID, text string) (*model.Item, error) {
	if text == "" {
		return nil, model.NewMissingFieldsError("text")
	}

	now := s.now()
	owner := userID
	item := &model.Item{
		ID:        uuid.NewString(),
		Text:      text,
		OwnerID:   &owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	slog.Info("item created",
		slog.String("user_id", userID),
		slog.String("item_id", item.ID),
	)
	return item, nil
}

// UpdateItem はアイテムのテキストを更新する。
// textがnilの場合は変更せず現在のアイテムを返す。
// 存在確認を所有者チェックより先に行う（404 → 403の順）。
func (s *ItemService) UpdateItem(ctx context.Context, userID, itemID string, text *string) (*model.Item, error) {
	item, err := s.findOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if text == nil || *text == "" {
		return item, nil
	}

	item.Text = *text
	item.UpdatedAt = s.now()
	if err := s.itemRepo.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, model.NewItemNotFoundError(itemID)
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return item, nil
}

// DeleteItem はアイテムを削除する。所有者のみ実行できる。
func (s *ItemService) DeleteItem(ctx context.Context, userID, itemID string) error {
	if _, err := s.findOwned(ctx, userID, itemID); err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return model.NewItemNotFoundError(itemID)
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}

	slog.Info("item deleted",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)
	return nil
}

// findOwned はアイテムを取得し、呼び出しユーザーが所有者であることを確認する。
// 所有者なしのアイテムは誰の所有物でもない。
func (s *ItemService) findOwned(ctx context.Context, userID, itemID string) (*model.Item, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOwnedBy(userID) {
		return nil, model.NewNotOwnerError()
	}
	return item, nil
}
