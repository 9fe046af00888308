package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargegrid/configurator/internal/tariff/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCacheWithClient(client)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	rules := []domain.PricingRule{
		{ID: 1, NetworkID: 1, Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.45), Active: true},
	}
	key := NetworkRulesKey(1, nil, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, c.Set(ctx, key, rules, DefaultTTL))

	var got []domain.PricingRule
	require.NoError(t, c.Get(ctx, key, &got))
	require.Len(t, got, 1)
	assert.Equal(t, int32(1), got[0].ID)
	assert.Equal(t, domain.ModelPerEnergy, got[0].Model)
	require.NotNil(t, got[0].Rates.PerKWh)
	assert.Equal(t, 0.45, *got[0].Rates.PerKWh)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	var got []domain.PricingRule
	err := c.Get(context.Background(), "tariff:rules:9:2024-06-01:any", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_Expiration(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	key := StationWindowsKey(7)
	require.NoError(t, c.Set(ctx, key, []domain.AvailabilityWindow{{StationID: 7}}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got []domain.AvailabilityWindow
	assert.ErrorIs(t, c.Get(ctx, key, &got), ErrCacheMiss)
}

func TestNetworkRulesKey(t *testing.T) {
	date := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "tariff:rules:1:2024-06-01:any", NetworkRulesKey(1, nil, date))

	ct := int32(2)
	assert.Equal(t, "tariff:rules:1:2024-06-01:2", NetworkRulesKey(1, &ct, date))
}

func TestInvalidateNetwork(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	date1 := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	date2 := time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)
	ct := int32(2)

	// Two dated variants for network 1, one for network 2.
	require.NoError(t, c.Set(ctx, NetworkRulesKey(1, nil, date1), []int{1}, DefaultTTL))
	require.NoError(t, c.Set(ctx, NetworkRulesKey(1, &ct, date2), []int{2}, DefaultTTL))
	require.NoError(t, c.Set(ctx, NetworkRulesKey(2, nil, date1), []int{3}, DefaultTTL))

	require.NoError(t, c.InvalidateNetwork(ctx, 1))

	var got []int
	assert.ErrorIs(t, c.Get(ctx, NetworkRulesKey(1, nil, date1), &got), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, NetworkRulesKey(1, &ct, date2), &got), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, NetworkRulesKey(2, nil, date1), &got), "other networks stay cached")
}

func TestInvalidateStation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, StationWindowsKey(7), []int{1}, DefaultTTL))
	require.NoError(t, c.Set(ctx, StationWindowsKey(8), []int{2}, DefaultTTL))

	require.NoError(t, c.InvalidateStation(ctx, 7))

	var got []int
	assert.ErrorIs(t, c.Get(ctx, StationWindowsKey(7), &got), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, StationWindowsKey(8), &got))
}
