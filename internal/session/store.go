package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/cache"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

const DefaultKey = "portfolio:session"

// Data is everything the client remembers about the signed-in user.
type Data struct {
	User      *models.User      `json:"user,omitempty"`
	Token     string            `json:"token,omitempty"`
	Classroom *models.Classroom `json:"classroom,omitempty"`
}

func (d Data) Role() models.UserRole {
	if d.User == nil {
		return ""
	}
	return d.User.Role
}

func (d Data) ClassCode() string {
	if d.Classroom == nil {
		return ""
	}
	return d.Classroom.Code
}

// Store persists session data between runs.
type Store interface {
	Load(ctx context.Context) (Data, error)
	Save(ctx context.Context, data Data) error
	Clear(ctx context.Context) error
}

// CacheStore keeps the session under a single cache key.
type CacheStore struct {
	cache cache.CacheService
	key   string
	ttl   time.Duration
}

func NewCacheStore(c cache.CacheService, key string, ttl time.Duration) *CacheStore {
	if key == "" {
		key = DefaultKey
	}
	return &CacheStore{cache: c, key: key, ttl: ttl}
}

// Load returns empty data when nothing has been stored yet.
func (s *CacheStore) Load(ctx context.Context) (Data, error) {
	var data Data
	err := s.cache.Get(ctx, s.key, &data)
	if errors.Is(err, cache.ErrCacheMiss) {
		return Data{}, nil
	}
	if err != nil {
		return Data{}, fmt.Errorf("load session: %w", err)
	}
	return data, nil
}

func (s *CacheStore) Save(ctx context.Context, data Data) error {
	if err := s.cache.Set(ctx, s.key, data, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *CacheStore) Clear(ctx context.Context) error {
	if err := s.cache.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
