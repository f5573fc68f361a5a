package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/polite-betrayal/proai/internal/model"
)

// DefaultOddsTTL bounds how long a cached estimate lives.
const DefaultOddsTTL = 24 * time.Hour

// Battle signatures can be long; keys use their digest.
func oddsKey(signature string) string {
	sum := sha1.Sum([]byte(signature))
	return "odds:" + hex.EncodeToString(sum[:])
}

// OddsCache stores battle estimates across planning passes.
type OddsCache struct {
	c   *Client
	ttl time.Duration
}

// NewOddsCache returns a cache on c. A non-positive ttl uses DefaultOddsTTL.
func NewOddsCache(c *Client, ttl time.Duration) *OddsCache {
	if ttl <= 0 {
		ttl = DefaultOddsTTL
	}
	return &OddsCache{c: c, ttl: ttl}
}

// GetOdds returns the cached record for a battle signature, or nil on a miss.
func (o *OddsCache) GetOdds(ctx context.Context, key string) (*model.OddsRecord, error) {
	data, err := o.c.rdb.Get(ctx, oddsKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get odds: %w", err)
	}
	var rec model.OddsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode odds: %w", err)
	}
	return &rec, nil
}

// SetOdds stores a record under a battle signature.
func (o *OddsCache) SetOdds(ctx context.Context, key string, rec *model.OddsRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode odds: %w", err)
	}
	if err := o.c.rdb.Set(ctx, oddsKey(key), data, o.ttl).Err(); err != nil {
		return fmt.Errorf("set odds: %w", err)
	}
	return nil
}

// ClearOdds drops every cached estimate.
func (o *OddsCache) ClearOdds(ctx context.Context) error {
	iter := o.c.rdb.Scan(ctx, 0, "odds:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan odds: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return o.c.rdb.Del(ctx, keys...).Err()
}
