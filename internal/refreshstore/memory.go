package refreshstore

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/authgate/internal/model"
)

// MemoryStore はmutexで保護したmapによるインメモリ実装。
// プロセス再起動でトークンは失われる。
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]model.RefreshToken
	now    func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。nowがnilの場合はtime.Nowを使用する。
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		tokens: make(map[string]model.RefreshToken),
		now:    now,
	}
}

// Put はトークンを登録する。
func (s *MemoryStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = model.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	return nil
}

// Get はトークンのレコードのコピーを返す。
func (s *MemoryStore) Get(ctx context.Context, token string) (*model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	return &rt, nil
}

// Consume はトークンを取り出して削除する。
func (s *MemoryStore) Consume(ctx context.Context, token string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	delete(s.tokens, token)
	return &rt, nil
}

// Delete はトークンを削除する。
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}

// DeleteExpired は期限切れのトークンを削除する。
func (s *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for token, rt := range s.tokens {
		if rt.Expired(now) {
			delete(s.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}

// Len は保持しているトークン数を返す。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
