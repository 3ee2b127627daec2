package cache

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() {
		_ = Close()
	})
	return mr
}

func TestUserTokenStateRoundTrip(t *testing.T) {
	mr := setupTestRedis(t)
	ctx := context.Background()
	user := &models.User{ID: 7, Nickname: "张三", UserType: "guest"}

	require.NoError(t, SetUserTokenState(ctx, "tok-1", BuildUserTokenState(user), time.Minute))

	state, hit, err := GetUserTokenState(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, uint(7), state.UserID)
	assert.Equal(t, "guest", state.UserType)

	key := "test:" + userTokenKey("tok-1")
	assert.True(t, mr.Exists(key))
	assert.NotContains(t, key, "tok-1")

	mr.FastForward(2 * time.Minute)
	_, hit, err = GetUserTokenState(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDelUserTokenState(t *testing.T) {
	setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, SetUserTokenState(ctx, "tok-2", &UserTokenState{UserID: 3}, time.Minute))
	require.NoError(t, DelUserTokenState(ctx, "tok-2"))

	_, hit, err := GetUserTokenState(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	UseClient(nil, "")
	ctx := context.Background()

	assert.False(t, Enabled())
	assert.NoError(t, SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var dest map[string]int
	hit, err := GetJSON(ctx, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, Ping(ctx))
}

func TestGetJSONCorruptPayload(t *testing.T) {
	mr := setupTestRedis(t)
	require.NoError(t, mr.Set("test:broken", "{not json"))

	var dest map[string]int
	hit, err := GetJSON(context.Background(), "broken", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestInitRedisUnreachableStaysDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	err = InitRedis(&config.RedisConfig{Enabled: true, Host: host, Port: portNum})
	assert.Error(t, err)
	assert.False(t, Enabled())
	assert.Nil(t, Client())
}

func TestInitRedisConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	require.NoError(t, InitRedis(&config.RedisConfig{Enabled: true, Host: host, Port: portNum, Prefix: "shop"}))
	t.Cleanup(func() { _ = Close() })

	require.NoError(t, SetJSON(context.Background(), "k", 1, time.Minute))
	assert.True(t, mr.Exists("shop:k"))
}
