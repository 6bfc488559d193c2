package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebla915/web1111-sub002/internal/mocks"
)

func TestRedisStoreClaim(t *testing.T) {
	tests := []struct {
		name      string
		result    *redis.BoolCmd
		wantFirst bool
		wantErr   bool
	}{
		{
			name:      "first delivery claims the event",
			result:    redis.NewBoolResult(true, nil),
			wantFirst: true,
		},
		{
			name:   "redelivery is reported as seen",
			result: redis.NewBoolResult(false, nil),
		},
		{
			name:    "redis failure is returned",
			result:  redis.NewBoolResult(false, mocks.MockRedisError{Msg: "connection refused"}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.MockRedisClient)
			client.On("SetNX", mock.Anything, "webhook:event:evt_1", mock.Anything, time.Hour).Return(tt.result).Once()

			store := NewRedisStore(client, time.Hour)

			first, err := store.Claim(context.Background(), "evt_1")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "connection refused")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantFirst, first)
			client.AssertExpectations(t)
		})
	}
}

func TestRedisStoreRelease(t *testing.T) {
	client := new(mocks.MockRedisClient)
	client.On("Del", mock.Anything, []string{"webhook:event:evt_1"}).Return(redis.NewIntResult(1, nil)).Once()

	err := NewRedisStore(client, 0).Release(context.Background(), "evt_1")

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, store.Release(ctx, "evt_1"))

	retried, err := store.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, retried)
}
