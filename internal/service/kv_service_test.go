package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeinsight-backend/internal/store"
)

func TestKVService_RoundTrip(t *testing.T) {
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	svc := &kvService{
		kv:  kv,
		ttl: store.DefaultTTLPolicy(),
		now: func() time.Time { return time.UnixMilli(1700000000000) },
	}
	ctx := context.Background()

	key, err := svc.Store(ctx, "abc", []byte(`{"rows":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, "data:abc", key)

	got, err := svc.Load(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"rows":[1,2]}`, string(got.Data))
	assert.Equal(t, int64(1700000000000), got.CreatedAt)

	require.NoError(t, svc.Delete(ctx, "abc"))
	got, err = svc.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKVService_RequiresSessionID(t *testing.T) {
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	svc := NewKVService(kv, store.DefaultTTLPolicy())
	ctx := context.Background()

	_, err = svc.Store(ctx, " ", []byte(`1`))
	assert.ErrorIs(t, err, ErrMissingSessionID)
	_, err = svc.Load(ctx, "")
	assert.ErrorIs(t, err, ErrMissingSessionID)
	assert.ErrorIs(t, svc.Delete(ctx, ""), ErrMissingSessionID)
}

func TestKVService_StoresNullForEmptyData(t *testing.T) {
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	svc := NewKVService(kv, store.DefaultTTLPolicy())

	_, err = svc.Store(context.Background(), "abc", nil)
	require.NoError(t, err)
	got, err := svc.Load(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "null", string(got.Data))
}
