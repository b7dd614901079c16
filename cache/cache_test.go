package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopsavvy/aggregator"
	"github.com/use-agent/shopsavvy/models"
)

func newTestCache(t *testing.T, maxEntries int) (*Cache, *time.Time) {
	t.Helper()
	c := New(maxEntries, time.Hour)
	t.Cleanup(c.Close)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func result(price int64) *aggregator.Result {
	return &aggregator.Result{Products: []models.ProductRecord{{Name: "Kettle", Price: price, OriginalPrice: price, Platform: models.PlatformJumia}}}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "samsung tv", Key("  Samsung   TV "))
	assert.Equal(t, Key("samsung tv"), Key("SAMSUNG\tTV"))
}

func TestGet_MaxAge(t *testing.T) {
	c, now := newTestCache(t, 10)
	c.Set("kettle", result(1500))

	*now = now.Add(4 * time.Minute)
	res, age, ok := c.Get("kettle", 5*time.Minute)
	require.True(t, ok)
	assert.Equal(t, 4*time.Minute, age)
	assert.Equal(t, int64(1500), res.Products[0].Price)

	*now = now.Add(2 * time.Minute)
	_, _, ok = c.Get("kettle", 5*time.Minute)
	assert.False(t, ok, "older than max age")

	_, _, ok = c.Get("kettle", 0)
	assert.False(t, ok, "zero max age bypasses the cache")

	_, _, ok = c.Get("missing", time.Hour)
	assert.False(t, ok)
}

func TestSet_EvictsAtCapacity(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Set("a", result(1))
	c.Set("b", result(2))
	c.Set("a", result(3))
	assert.Equal(t, 2, c.Size(), "overwriting does not evict")

	c.Set("c", result(4))
	assert.Equal(t, 2, c.Size())
	_, _, ok := c.Get("c", time.Hour)
	assert.True(t, ok)
}

func TestPurge(t *testing.T) {
	c, now := newTestCache(t, 10)
	c.Set("old", result(1))
	*now = now.Add(50 * time.Minute)
	c.Set("fresh", result(2))
	*now = now.Add(20 * time.Minute)

	c.purge()
	assert.Equal(t, 1, c.Size())
	_, _, ok := c.Get("fresh", time.Hour)
	assert.True(t, ok)
}
