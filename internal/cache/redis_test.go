package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type cachedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func TestAside_MissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fills := 0
	fill := func(dest *cachedUser) func() error {
		return func() error {
			fills++
			dest.ID = 7
			dest.Username = "ada"
			return nil
		}
	}

	var first cachedUser
	err := Aside(ctx, UserKey(7), &first, UserTTL, fill(&first))
	require.NoError(t, err)
	assert.Equal(t, 1, fills)
	assert.Equal(t, "ada", first.Username)

	// Second call is served from the cache; fill must not run again.
	var second cachedUser
	err = Aside(ctx, UserKey(7), &second, UserTTL, fill(&second))
	require.NoError(t, err)
	assert.Equal(t, 1, fills)
	assert.Equal(t, first, second)
}

func TestAside_CorruptEntryFallsBackToFill(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(UserKey(9), "{not-json"))

	var u cachedUser
	err := Aside(ctx, UserKey(9), &u, time.Minute, func() error {
		u.ID = 9
		u.Username = "grace"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "grace", u.Username)
}

func TestAside_NoClientDegradesToFill(t *testing.T) {
	SetClient(nil)

	var u cachedUser
	err := Aside(context.Background(), UserKey(1), &u, time.Minute, func() error {
		u.ID = 1
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)
}

func TestInvalidateUser(t *testing.T) {
	mr := setupMiniredis(t)

	require.NoError(t, mr.Set(UserKey(3), `{"id":3}`))
	InvalidateUser(context.Background(), 3)
	assert.False(t, mr.Exists(UserKey(3)))
}
