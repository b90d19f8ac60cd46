package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskshare/taskshare/internal/model"
)

const (
	// authCachePrefix keys a cached token resolution by token hash.
	authCachePrefix = "auth:ctx:"
	// authUserPrefix keys the set of cache keys issued for one user.
	authUserPrefix = "auth:user:"
	// authGenPrefix keys a per-user counter bumped by every logout.
	authGenPrefix = "auth:gen:"
	authCacheTTL  = 5 * time.Minute
	authGenTTL    = 24 * time.Hour
)

type cachedAuthContext struct {
	UserID      string `json:"user_id"`
	TokenID     string `json:"token_id"`
	TokenPrefix string `json:"token_prefix"`
}

// GetAuthContext returns the cached token resolution for cacheKey.
// A miss or a corrupt entry returns nil, nil.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		UserID:      cached.UserID,
		TokenID:     cached.TokenID,
		TokenPrefix: cached.TokenPrefix,
	}, nil
}

// AuthGeneration returns the logout generation of a user, 0 if the user
// never logged out. Pass it to SetAuthContext.
func (c *Cache) AuthGeneration(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, authGenPrefix+userID).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get auth generation: %w", err)
	}
	return gen, nil
}

// setAuthContextScript writes the entry only while the user's generation
// still matches, so a lookup that raced a logout cannot repopulate the cache.
var setAuthContextScript = redis.NewScript(`
local gen = tonumber(redis.call('GET', KEYS[3]) or '0')
if gen ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[4])
redis.call('SADD', KEYS[2], ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return 1
`)

// SetAuthContext caches a token resolution and indexes the key under its
// user so that logout can drop every entry at once. generation must have
// been read with AuthGeneration before the token was last confirmed in the
// database. It reports false when a logout happened since.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext, generation int64) (bool, error) {
	data, err := json.Marshal(cachedAuthContext{
		UserID:      auth.UserID,
		TokenID:     auth.TokenID,
		TokenPrefix: auth.TokenPrefix,
	})
	if err != nil {
		return false, fmt.Errorf("marshal auth context: %w", err)
	}

	keys := []string{authCachePrefix + cacheKey, authUserPrefix + auth.UserID, authGenPrefix + auth.UserID}
	stored, err := setAuthContextScript.Run(ctx, c.client, keys,
		generation, data, cacheKey, authCacheTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("set auth context: %w", err)
	}
	return stored == 1, nil
}

// InvalidateUserAuthContexts bumps the user's generation and removes every
// cached token resolution of the user. Call it after the tokens are gone
// from the database.
func (c *Cache) InvalidateUserAuthContexts(ctx context.Context, userID string) error {
	userKey := authUserPrefix + userID
	genKey := authGenPrefix + userID

	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, authGenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bump auth generation: %w", err)
	}

	members, err := c.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list user auth keys: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, authCachePrefix+m)
	}
	keys = append(keys, userKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user auth keys: %w", err)
	}
	return nil
}
