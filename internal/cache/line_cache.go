package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"statement-line-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	lineNamespace = "statement_line:id"
	genNamespace  = "statement_line:gen"

	// generations outlive any in-flight read
	genTTL = 24 * time.Hour
)

// setIfCurrent writes the line only while its generation is unchanged.
// KEYS[1] line key, KEYS[2] generation key
// ARGV[1] generation read before loading, ARGV[2] payload, ARGV[3] ttl ms
var setIfCurrent = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if not cur then cur = '0' end
if cur ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// LineCache is a read-through cache of statement lines in redis.
//
// Every invalidation bumps a per-line generation. Readers take the
// generation before loading from the database and only write back if it
// has not moved, so a load that raced a commit never lands in the cache.
type LineCache struct {
	client redis.UniversalClient // works with both single and cluster
	ttl    time.Duration
}

// NewRedisClient builds a single node or cluster client.
func NewRedisClient(addrs []string, password string, useCluster bool) redis.UniversalClient {
	if useCluster && len(addrs) > 1 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     addrs[0],
		Password: password,
		DB:       0,
	})
}

func NewLineCache(client redis.UniversalClient, ttl time.Duration) *LineCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LineCache{client: client, ttl: ttl}
}

// Get returns the cached line. A miss and a broken entry both report false.
func (c *LineCache) Get(ctx context.Context, id int64) (*domain.StatementLine, bool) {
	val, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var line domain.StatementLine
	if err := json.Unmarshal(val, &line); err != nil {
		return nil, false
	}
	return &line, true
}

// Generation returns the current generation of a line, 0 if it was never
// invalidated.
func (c *LineCache) Generation(ctx context.Context, id int64) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetIfCurrent caches the line if no invalidation happened since gen was
// read. It reports whether the line was written.
func (c *LineCache) SetIfCurrent(ctx context.Context, line *domain.StatementLine, gen int64) (bool, error) {
	data, err := json.Marshal(line)
	if err != nil {
		return false, err
	}
	n, err := setIfCurrent.Run(ctx, c.client,
		[]string{key(line.ID), genKey(line.ID)},
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *LineCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Incr(ctx, genKey(id))
			p.Expire(ctx, genKey(id), genTTL)
			p.Del(ctx, key(id))
		}
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// keys of one line share a hash slot so the script runs on cluster too
func key(id int64) string {
	return lineNamespace + ":{" + strconv.FormatInt(id, 10) + "}"
}

func genKey(id int64) string {
	return genNamespace + ":{" + strconv.FormatInt(id, 10) + "}"
}
