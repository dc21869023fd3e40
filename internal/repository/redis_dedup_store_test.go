package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedDedupStore(t *testing.T, at time.Time) (*RedisDedupStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	store := NewRedisDedupStore(db)
	store.now = func() time.Time { return at }
	return store, mock
}

func TestRedisDedupReserveClaimsFreeSlot(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newMockedDedupStore(t, at)

	key := "BTCUSDT:LONG"
	mock.ExpectSetNX(dedupKeyPrefix+key, at.UnixMilli(), 24*time.Hour).SetVal(true)
	mock.ExpectZAdd(dedupIndexKey, redis.Z{Score: float64(at.UnixMilli()), Member: key}).SetVal(1)

	dup, remaining, err := store.Reserve(context.Background(), key, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Zero(t, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDedupReserveReportsDuplicate(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newMockedDedupStore(t, at)

	key := "BTCUSDT:LONG"
	mock.ExpectSetNX(dedupKeyPrefix+key, at.UnixMilli(), 24*time.Hour).SetVal(false)
	mock.ExpectPTTL(dedupKeyPrefix + key).SetVal(18 * time.Hour)

	dup, remaining, err := store.Reserve(context.Background(), key, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, 18*time.Hour, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDedupReserveRollsBackOnIndexFailure(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newMockedDedupStore(t, at)

	key := "BTCUSDT:LONG"
	mock.ExpectSetNX(dedupKeyPrefix+key, at.UnixMilli(), 24*time.Hour).SetVal(true)
	mock.ExpectZAdd(dedupIndexKey, redis.Z{Score: float64(at.UnixMilli()), Member: key}).
		SetErr(errors.New("index unavailable"))
	mock.ExpectDel(dedupKeyPrefix + key).SetVal(1)

	_, _, err := store.Reserve(context.Background(), key, 24*time.Hour)
	require.Error(t, err)
	// The TTL key must be gone so the next cycle can reserve the slot.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDedupReleaseRemovesKeyAndIndexEntry(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newMockedDedupStore(t, at)

	key := "BTCUSDT:LONG"
	mock.ExpectDel(dedupKeyPrefix + key).SetVal(1)
	mock.ExpectZRem(dedupIndexKey, key).SetVal(1)

	require.NoError(t, store.Release(context.Background(), key))
	require.NoError(t, mock.ExpectationsWereMet())
}
