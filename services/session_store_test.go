package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *models.Session {
	return &models.Session{
		ID:          "sess-1",
		AccessToken: "token",
		User: &models.User{
			ID:    "u1",
			Name:  "Ana",
			Email: "ana@fasttech.com",
			Roles: []string{models.RoleManager},
		},
		CreatedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func exerciseSessionStore(t *testing.T, store SessionStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, sampleSession()))

	loaded, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "token", loaded.AccessToken)
	require.NotNil(t, loaded.User)
	assert.True(t, loaded.User.IsManager())

	// the stored copy is not shared with callers
	loaded.User.Roles[0] = models.RoleAdmin
	again, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, again.User.IsAdmin())

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseSessionStore(t, NewMemorySessionStore())
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	exerciseSessionStore(t, NewRedisSessionStoreWithClient(rdb, time.Hour))
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisSessionStoreWithClient(rdb, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSession()))
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+"sess-1"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestNewRedisSessionStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisSessionStore(context.Background(), "redis://"+mr.Addr()+"/0", time.Hour)
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))

	_, err = NewRedisSessionStore(context.Background(), "not a url", time.Hour)
	assert.Error(t, err)
}

func TestRedisProbe(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewDiagnosticsService(fakeIdentityDiagnostics{}, newFakeClock(testNow), testLogger(),
		PingProbe("redis", NewRedisSessionStoreWithClient(rdb, time.Hour).Ping))

	results := svc.Upstreams(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].Healthy)
	assert.Equal(t, "reachable", results[0].Detail)

	mr.Close()
	results = svc.Upstreams(context.Background())
	assert.False(t, results[0].Healthy)
	assert.NotEmpty(t, results[0].Error)
}
