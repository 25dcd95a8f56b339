package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/cache"
	"github.com/schedcu/v2/internal/entity"
)

func newTestCache(t *testing.T) *cache.SolutionCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewSolutionCache(client, time.Minute)
}

func sampleSolution() *cache.Solution {
	a := entity.NewAssignment(uuid.New(), uuid.New(), uuid.New(), entity.AssignmentRolePrimary, uuid.New())
	a.ActivityOverride = "fm_clinic"
	return &cache.Solution{Assignments: []*entity.Assignment{a}, Score: 0.92}
}

func TestProblemHash_DeterministicRegardlessOfInputOrder(t *testing.T) {
	a := uuid.New().String()
	b := uuid.New().String()
	h1, err := cache.ProblemHash(cache.ProblemInputs{PersonIDs: []string{a, b}})
	require.NoError(t, err)
	h2, err := cache.ProblemHash(cache.ProblemInputs{PersonIDs: []string{b, a}})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestProblemHash_DiffersWhenConstraintsDiffer(t *testing.T) {
	base := cache.ProblemInputs{PersonIDs: []string{"p1"}}
	h1, err := cache.ProblemHash(base)
	require.NoError(t, err)

	withConstraints := base
	withConstraints.Constraints = map[string]interface{}{"max_hours": 80}
	h2, err := cache.ProblemHash(withConstraints)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestSolutionCache_MissReturnsNil(t *testing.T) {
	c := newTestCache(t)
	sol, err := c.GetSolution(context.Background(), "deadbeefdeadbeef")
	require.NoError(t, err)
	assert.Nil(t, sol)
}

func TestSolutionCache_SetThenGetRoundTrips(t *testing.T) {
	c := newTestCache(t)
	want := sampleSolution()

	require.NoError(t, c.SetSolution(context.Background(), "abc123abc123abcd", want, 0))
	got, err := c.GetSolution(context.Background(), "abc123abc123abcd")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, want.Score, got.Score, 0.0001)
	require.Len(t, got.Assignments, 1)
	assert.Equal(t, want.Assignments[0].ID, got.Assignments[0].ID)
}

func TestSolutionCache_PartialSolutionScopedByDateRange(t *testing.T) {
	c := newTestCache(t)
	r := cache.DateRange{Start: entity.NewDate(2026, 1, 1), End: entity.NewDate(2026, 1, 7)}
	want := sampleSolution()

	require.NoError(t, c.SetPartialSolution(context.Background(), "hash1", r, want, 0))
	got, err := c.GetPartialSolution(context.Background(), "hash1", r)
	require.NoError(t, err)
	require.NotNil(t, got)

	other := cache.DateRange{Start: entity.NewDate(2026, 1, 8), End: entity.NewDate(2026, 1, 14)}
	miss, err := c.GetPartialSolution(context.Background(), "hash1", other)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestSolutionCache_InvalidateSolutionsClearsBothTiers(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.SetSolution(context.Background(), "hash-to-clear", sampleSolution(), 0))

	count, err := c.InvalidateSolutions(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)

	got, err := c.GetSolution(context.Background(), "hash-to-clear")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSolutionCache_WorksWithoutRedis(t *testing.T) {
	c := cache.NewSolutionCache(nil, time.Minute)
	want := sampleSolution()

	require.NoError(t, c.SetSolution(context.Background(), "local-only", want, 0))
	got, err := c.GetSolution(context.Background(), "local-only")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Assignments[0].ID, got.Assignments[0].ID)

	count, err := c.InvalidateSolutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
