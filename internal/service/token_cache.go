package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
	"github.com/tekeve/WITv3.0-sub000/pkg/hash"
)

// TokenDetailsTTL bounds how long a vote-details lookup may be served from
// cache. Eviction by TTL keeps the cache free of dead token entries without
// any ambient in-process session state.
const TokenDetailsTTL = 10 * time.Minute

// TokenCache is a Redis layer for per-token vote-details lookups. Keys are
// namespaced under "token:" and derived from a hash of the token, so the
// raw credential never appears in the cache keyspace.
type TokenCache struct {
	rdb *redis.Client
}

// NewTokenCache creates a TokenCache. If redisURL is empty or the connection
// fails, it returns a cache with a nil client and every operation becomes a
// no-op; casting works without Redis, just without the read shortcut.
func NewTokenCache(redisURL string) *TokenCache {
	if redisURL == "" {
		log.Println("redis: no URL configured, token cache disabled")
		return &TokenCache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, token cache disabled: %v", redisURL, err)
		return &TokenCache{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, token cache disabled: %v", err)
		return &TokenCache{}
	}

	log.Println("redis: connected, token cache enabled")
	return &TokenCache{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *TokenCache) Client() *redis.Client {
	return c.rdb
}

// GetDetails retrieves cached vote details for a token. Returns nil when not
// cached or the cache is disabled.
func (c *TokenCache) GetDetails(ctx context.Context, token string) (*model.VoteDetailsResponse, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, tokenKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var details model.VoteDetailsResponse
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// SetDetails stores vote details for a token with a TTL, and indexes the key
// under its election so InvalidateElection can sweep every cached entry when
// the election closes.
func (c *TokenCache) SetDetails(ctx context.Context, token, electionID string, details *model.VoteDetailsResponse) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return err
	}

	key := tokenKey(token)
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, key, b, TokenDetailsTTL)
	pipe.SAdd(ctx, electionKey(electionID), key)
	pipe.Expire(ctx, electionKey(electionID), TokenDetailsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate removes a token's cached details (called after a cast consumes
// the token).
func (c *TokenCache) Invalidate(ctx context.Context, token string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, tokenKey(token)).Err()
}

// InvalidateElection removes every cached vote-details entry for an election.
// Called by the coordinator when the election is deactivated, so stale 200s
// for still-unused tokens stop at close rather than at TTL expiry.
func (c *TokenCache) InvalidateElection(ctx context.Context, electionID string) error {
	if c.rdb == nil {
		return nil
	}
	keys, err := c.rdb.SMembers(ctx, electionKey(electionID)).Result()
	if err != nil {
		return err
	}
	keys = append(keys, electionKey(electionID))
	return c.rdb.Del(ctx, keys...).Err()
}

// Close shuts down the Redis connection.
func (c *TokenCache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func tokenKey(token string) string {
	return fmt.Sprintf("token:%s", hash.TokenKeySuffix(token))
}

func electionKey(electionID string) string {
	return fmt.Sprintf("election_tokens:%s", electionID)
}
