package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// ItemServiceInterface はアイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	ListItems(ctx context.Context) ([]*model.Item, error)
	GetItem(ctx context.Context, itemID string) (*model.Item, error)
	CreateItem(ctx context.Context, userID, text string) (*model.Item, error)
	// UpdateItem はtextがnilまたは空の場合は変更せず現在の値を返す。
	UpdateItem(ctx context.Context, userID, itemID string, text *string) (*model.Item, error)
	DeleteItem(ctx context.Context, userID, itemID string) error
}

// ItemHandler はアイテム管理のHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// itemResponse はアイテムのレスポンス。所有者なしの場合ownerIdはnull。
type itemResponse struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	OwnerID *string `json:"ownerId"`
}

type createItemRequest struct {
	Text string `json:"text"`
}

type updateItemRequest struct {
	Text *string `json:"text,omitempty"`
}

func toItemResponse(item *model.Item) itemResponse {
	return itemResponse{
		ID:      item.ID,
		Text:    item.Text,
		OwnerID: item.OwnerID,
	}
}

// ListItems はアイテム一覧を返す。認証不要。
// GET /items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem はアイテムを1件返す。
// GET /items/:id
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// CreateItem は認証済みユーザーを所有者としてアイテムを作成する。
// POST /items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	item, err := h.service.CreateItem(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// UpdateItem はアイテムのテキストを更新する。所有者のみ可能。
// PUT /items/:id
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	item, err := h.service.UpdateItem(r.Context(), userID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// DeleteItem はアイテムを削除する。所有者のみ可能。
// DELETE /items/:id
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "deleted"})
}

// requireUserID はコンテキストから認証済みユーザーIDを取り出す。
// 取り出せない場合は401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingAuthorizationError())
		return "", false
	}
	return userID, true
}
