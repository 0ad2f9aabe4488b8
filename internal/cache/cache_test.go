package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_RoundTripAndExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	key := TopKey(1, 5)
	value := []byte(`[{"user_id":1,"movie_id":10,"score":0.9}]`)

	require.NoError(t, store.Set(ctx, key, value, time.Hour))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	mr.FastForward(59 * time.Minute)
	_, err = store.Get(ctx, key)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestRedisStore_MissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "recommendations:popular:5")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestRedisStore_DeletePrefix(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	store.scanSize = 2

	for limit := 1; limit <= 5; limit++ {
		require.NoError(t, store.Set(ctx, TopKey(1, limit), []byte("[]"), time.Hour))
	}
	require.NoError(t, store.Set(ctx, TopKey(10, 5), []byte("[]"), time.Hour))
	require.NoError(t, store.Set(ctx, SimilarKey(1, 5), []byte("[]"), time.Hour))

	deleted, err := store.DeletePrefix(ctx, TopPrefix(1))
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	for limit := 1; limit <= 5; limit++ {
		assert.False(t, mr.Exists(TopKey(1, limit)), fmt.Sprintf("limit %d", limit))
	}
	assert.True(t, mr.Exists(TopKey(10, 5)))
	assert.True(t, mr.Exists(SimilarKey(1, 5)))
}

func TestRedisStore_PingFailsWhenServerDown(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "recommendations:top:42:5", TopKey(42, 5))
	assert.Equal(t, "recommendations:top:42:", TopPrefix(42))
	assert.Equal(t, "recommendations:similar:7:", SimilarPrefix(7))
	assert.Equal(t, "recommendations:popular:", PopularPrefix())
	assert.Equal(t, "recommendations:", RootPrefix)
	assert.Equal(t, "recommendations:similar:7:3", SimilarKey(7, 3))
	assert.Equal(t, "recommendations:popular:10", PopularKey(10))
	assert.Equal(t, `a\*b\?`, escapePattern("a*b?"))
}
