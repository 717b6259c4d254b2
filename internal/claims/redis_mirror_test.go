package claims

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roles"
)

func TestRedisMirror_SetGetInvalidate(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	mirror := NewRedisMirror(client, "test:claims:", time.Hour)
	ctx := context.Background()

	c := roles.Claims{
		Sub:               "sub-1",
		Role:              roles.RoleSupporter,
		SupporterRole:     roles.SupporterOwner,
		OwnedSupporterIDs: []string{"enoodle"},
	}
	require.NoError(t, mirror.Set(ctx, c))

	got, err := mirror.Get(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "supporter", got.Role)
	require.Equal(t, "owner", got.SupporterRole)
	require.Equal(t, []string{"enoodle"}, got.OwnedSupporterIDs)
	require.False(t, got.MirroredAt.IsZero())

	require.NoError(t, mirror.Invalidate(ctx, "sub-1"))
	got2, err := mirror.Get(ctx, "sub-1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisMirror_MissingIsNilNotError(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	mirror := NewRedisMirror(client, "test:claims:", time.Hour)

	got, err := mirror.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisMirror_TTLBoundsStaleness(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	mirror := NewRedisMirror(client, "test:claims:", time.Second)
	ctx := context.Background()

	require.NoError(t, mirror.Set(ctx, roles.Claims{Sub: "sub-2", Role: roles.RoleAdmin}))

	got, err := mirror.Get(ctx, "sub-2")
	require.NoError(t, err)
	require.NotNil(t, got)

	m.FastForward(2 * time.Second)

	got2, err := mirror.Get(ctx, "sub-2")
	require.NoError(t, err)
	require.Nil(t, got2)
}
