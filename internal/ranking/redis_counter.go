package ranking

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"commerce-core/internal/model"
)

const (
	defaultKeyPrefix = "ranking"
	scanBatch        = 200

	// Counters of windows that never get rolled up expire on their own.
	dayKeyTTL  = 3 * 24 * time.Hour
	weekKeyTTL = 15 * 24 * time.Hour
)

// RedisCounter keeps one sorted set per window, member = product ID, score = quantity.
type RedisCounter struct {
	cli    *redis.Client
	prefix string
}

var _ Counter = (*RedisCounter)(nil)

// NewRedisCounter stores counters under keys "<prefix>:<kind>:<window id>".
// An empty prefix selects "ranking".
func NewRedisCounter(cli *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCounter{cli: cli, prefix: prefix}
}

func (c *RedisCounter) key(w model.Window) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, w.Kind, w.ID())
}

// Increment adds quantity to the day and week sets in one MULTI/EXEC.
func (c *RedisCounter) Increment(ctx context.Context, productID, quantity int64, at time.Time) error {
	if quantity <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", quantity)
	}
	member := strconv.FormatInt(productID, 10)
	dayKey := c.key(model.DayWindow(at))
	weekKey := c.key(model.WeekWindow(at))

	_, err := c.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZIncrBy(ctx, dayKey, float64(quantity), member)
		pipe.Expire(ctx, dayKey, dayKeyTTL)
		pipe.ZIncrBy(ctx, weekKey, float64(quantity), member)
		pipe.Expire(ctx, weekKey, weekKeyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment product %d: %w", productID, err)
	}
	return nil
}

func (c *RedisCounter) Scores(ctx context.Context, w model.Window) ([]model.RankingScore, error) {
	zs, err := c.cli.ZRangeWithScores(ctx, c.key(w), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w, err)
	}

	scores := make([]model.RankingScore, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T in %s", z.Member, w)
		}
		productID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad member %q in %s: %w", member, w, err)
		}
		scores = append(scores, model.RankingScore{ProductID: productID, Quantity: int64(z.Score)})
	}
	model.SortScores(scores)
	return scores, nil
}

// TopN reads the whole set so ties can be broken by product ID; sorted-set order breaks
// ties lexicographically by member.
func (c *RedisCounter) TopN(ctx context.Context, w model.Window, n int) ([]model.RankingScore, error) {
	scores, err := c.Scores(ctx, w)
	if err != nil {
		return nil, err
	}
	return model.TopScores(scores, n), nil
}

func (c *RedisCounter) Windows(ctx context.Context, kind model.WindowKind) ([]string, error) {
	prefix := fmt.Sprintf("%s:%s:", c.prefix, kind)
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := c.cli.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s counters: %w", kind, err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	// SCAN may return a key more than once
	sort.Strings(ids)
	return slices.Compact(ids), nil
}

func (c *RedisCounter) Evict(ctx context.Context, kind model.WindowKind, throughID string) (int, error) {
	prefix := fmt.Sprintf("%s:%s:", c.prefix, kind)
	var (
		cursor  uint64
		evicted int
	)
	for {
		keys, next, err := c.cli.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return evicted, fmt.Errorf("scan %s counters: %w", kind, err)
		}

		var stale []string
		for _, key := range keys {
			if strings.TrimPrefix(key, prefix) <= throughID {
				stale = append(stale, key)
			}
		}
		if len(stale) > 0 {
			n, err := c.cli.Del(ctx, stale...).Result()
			if err != nil {
				return evicted, fmt.Errorf("delete %s counters: %w", kind, err)
			}
			evicted += int(n)
		}

		if next == 0 {
			return evicted, nil
		}
		cursor = next
	}
}
