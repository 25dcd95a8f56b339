// Package cache implements spec.md §4.7's schedule solution cache: a
// problem-hash-keyed store for full and partial generation results, so a
// repeated or resumed generation run can skip redundant solver work.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/entity"
)

// DefaultTTL is the default time a cached solution lives, spec.md §4.7's
// one-hour default.
const DefaultTTL = time.Hour

const (
	solutionPrefix = "schedule_solution:"
	partialPrefix  = "partial_solution:"
)

// ProblemInputs is the deterministic fingerprint source for a scheduling
// problem: person/rotation/block identities plus the constraint
// parameters in force, hashed to a cache key.
type ProblemInputs struct {
	PersonIDs     []string
	RotationIDs   []string
	BlockIDs      []string
	Constraints   map[string]interface{}
}

// ProblemHash reduces inputs to a short, deterministic identifier: the
// first 16 hex characters of a SHA-256 over the canonically-sorted
// inputs, matching spec.md's problem_hash contract.
func ProblemHash(inputs ProblemInputs) (string, error) {
	persons := append([]string(nil), inputs.PersonIDs...)
	rotations := append([]string(nil), inputs.RotationIDs...)
	blocks := append([]string(nil), inputs.BlockIDs...)
	sort.Strings(persons)
	sort.Strings(rotations)
	sort.Strings(blocks)

	raw, err := entity.CanonicalJSON(map[string]interface{}{
		"persons":     persons,
		"rotations":   rotations,
		"blocks":      blocks,
		"constraints": inputs.Constraints,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16], nil
}

// Solution is a generation result, either complete or scoped to a date
// range (a "partial" solution).
type Solution struct {
	Assignments []*entity.Assignment
	Score       float64
}

// DateRange scopes a partial solution's cache key.
type DateRange struct {
	Start entity.Date
	End   entity.Date
}

func (r DateRange) key(problemHash string) string {
	return fmt.Sprintf("%s%s:%s:%s", partialPrefix, problemHash, r.Start.String(), r.End.String())
}

// SolutionCache is a two-tier cache: a fast in-process tier
// (patrickmn/go-cache) checked first, backed by a shared Redis tier so
// entries survive process restarts and are visible across instances.
// The Redis tier is optional — a nil client runs in-process-only mode.
type SolutionCache struct {
	local *gocache.Cache
	redis redis.Cmdable
	ttl   time.Duration
}

// NewSolutionCache builds a cache with the given default TTL; redisClient
// may be nil to run without the distributed tier.
func NewSolutionCache(redisClient redis.Cmdable, ttl time.Duration) *SolutionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SolutionCache{
		local: gocache.New(ttl, ttl/2),
		redis: redisClient,
		ttl:   ttl,
	}
}

// GetSolution returns the cached complete solution for a problem hash,
// or nil if absent in both tiers.
func (c *SolutionCache) GetSolution(ctx context.Context, problemHash string) (*Solution, error) {
	return c.get(ctx, solutionPrefix+problemHash)
}

// SetSolution caches a complete solution, using the cache's default TTL
// when ttl is zero.
func (c *SolutionCache) SetSolution(ctx context.Context, problemHash string, sol *Solution, ttl time.Duration) error {
	return c.set(ctx, solutionPrefix+problemHash, sol, ttl)
}

// GetPartialSolution returns a cached partial solution scoped to a date
// range, or nil if absent.
func (c *SolutionCache) GetPartialSolution(ctx context.Context, problemHash string, r DateRange) (*Solution, error) {
	return c.get(ctx, r.key(problemHash))
}

// SetPartialSolution caches a partial solution scoped to a date range.
func (c *SolutionCache) SetPartialSolution(ctx context.Context, problemHash string, r DateRange, sol *Solution, ttl time.Duration) error {
	return c.set(ctx, r.key(problemHash), sol, ttl)
}

func (c *SolutionCache) get(ctx context.Context, key string) (*Solution, error) {
	if cached, ok := c.local.Get(key); ok {
		sol, _ := cached.(*Solution)
		log.Debug().Str("key", key).Msg("solution cache hit (local)")
		return sol, nil
	}

	if c.redis == nil {
		return nil, nil
	}
	raw, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sol Solution
	if err := json.Unmarshal([]byte(raw), &sol); err != nil {
		return nil, err
	}
	c.local.SetDefault(key, &sol)
	log.Debug().Str("key", key).Msg("solution cache hit (redis)")
	return &sol, nil
}

func (c *SolutionCache) set(ctx context.Context, key string, sol *Solution, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.local.Set(key, sol, ttl)

	if c.redis == nil {
		return nil
	}
	raw, err := json.Marshal(sol)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, raw, ttl).Err()
}

// InvalidateSolutions drops every cached solution, full and partial, in
// both tiers. Invalidation is all-or-nothing; entries cannot be dropped
// selectively by person, rotation or date. The returned count covers
// Redis keys only.
func (c *SolutionCache) InvalidateSolutions(ctx context.Context) (int, error) {
	c.local.Flush()

	if c.redis == nil {
		return 0, nil
	}
	count := 0
	for _, prefix := range []string{solutionPrefix, partialPrefix} {
		n, err := c.invalidatePrefix(ctx, prefix)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

func (c *SolutionCache) invalidatePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return total, err
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return total, err
			}
			total += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}
