package branches

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// PreferenceStore persists the selected branch per user.
type PreferenceStore interface {
	Selected(ctx context.Context, userID string) (*string, error)
	Save(ctx context.Context, userID, branchID string) error
	Clear(ctx context.Context, userID string) error
}

// RedisPreferences keeps selections in redis without expiry.
type RedisPreferences struct {
	client *redis.Client
}

// NewRedisPreferences constructs the redis-backed preference store.
func NewRedisPreferences(client *redis.Client) *RedisPreferences {
	return &RedisPreferences{client: client}
}

// PreferenceKey namespaces the selection per user.
func PreferenceKey(userID string) string {
	return "branch:selected:" + userID
}

// Selected returns the stored branch id, or nil when nothing is stored.
func (p *RedisPreferences) Selected(ctx context.Context, userID string) (*string, error) {
	val, err := p.client.Get(ctx, PreferenceKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return &val, nil
}

// Save stores the branch id for the user.
func (p *RedisPreferences) Save(ctx context.Context, userID, branchID string) error {
	return p.client.Set(ctx, PreferenceKey(userID), branchID, 0).Err()
}

// Clear forgets the user's selection.
func (p *RedisPreferences) Clear(ctx context.Context, userID string) error {
	return p.client.Del(ctx, PreferenceKey(userID)).Err()
}
