package apiclient

import (
	"context"
	"sync"

	"github.com/thostetler/nectar-sub000/pkg/token"
)

// TokenStorage persists the token between Client lifetimes. Load returns
// (nil, nil) when nothing is stored.
type TokenStorage interface {
	Load(ctx context.Context) (*token.Token, error)
	Save(ctx context.Context, t token.Token) error
	Clear(ctx context.Context) error
}

// MemoryStorage is a TokenStorage shared by reference, e.g. between clients
// created for the same user.
type MemoryStorage struct {
	mu  sync.RWMutex
	tok *token.Token
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load(context.Context) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return nil, nil
	}
	t := *s.tok
	return &t, nil
}

func (s *MemoryStorage) Save(_ context.Context, t token.Token) error {
	s.mu.Lock()
	s.tok = &t
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Clear(context.Context) error {
	s.mu.Lock()
	s.tok = nil
	s.mu.Unlock()
	return nil
}

type noStorage struct{}

func (noStorage) Load(context.Context) (*token.Token, error) { return nil, nil }
func (noStorage) Save(context.Context, token.Token) error    { return nil }
func (noStorage) Clear(context.Context) error                { return nil }
