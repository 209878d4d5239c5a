package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestJSONCacheRoundTripAndExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewJSON(client, "catalog:", time.Minute)
	ctx := context.Background()

	var got []string
	hit, err := cache.Get(ctx, "levels", &got)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, "levels", []string{"PRIMARIA", "SECUNDARIA"}))
	require.True(t, srv.Exists("catalog:levels"))

	hit, err = cache.Get(ctx, "levels", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []string{"PRIMARIA", "SECUNDARIA"}, got)

	srv.FastForward(2 * time.Minute)
	hit, err = cache.Get(ctx, "levels", &got)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, "levels", []string{"INICIAL"}))
	require.NoError(t, cache.Delete(ctx, "levels"))
	require.False(t, srv.Exists("catalog:levels"))
}

func TestJSONCacheWithoutClientIsAMiss(t *testing.T) {
	cache := NewJSON(nil, "x:", time.Minute)
	var v int
	hit, err := cache.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.Set(context.Background(), "k", 1))
	require.NoError(t, cache.Delete(context.Background(), "k"))
}
