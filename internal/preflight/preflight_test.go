package preflight_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/preflight"
)

func newGate() *preflight.FeatureCheck {
	return &preflight.FeatureCheck{ExpiryWait: 5 * time.Millisecond}
}

func expectWrite(mock redismock.ClientMock) {
	mock.ExpectSet("test_key", "benchmark_val", 0).SetVal("OK")
	mock.ExpectGet("test_key").SetVal("benchmark_val")
	mock.ExpectExpire("test_key", time.Second).SetVal(true)
	mock.ExpectTTL("test_key").SetVal(time.Second)
}

func TestFeatureCheckPasses(t *testing.T) {
	db, mock := redismock.NewClientMock()
	expectWrite(mock)
	mock.ExpectGet("test_key").RedisNil()

	ok, err := newGate().Check(context.Background(), kvclient.NewTestClient(db))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureCheckFailsWhenKeyDoesNotExpire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	expectWrite(mock)
	mock.ExpectGet("test_key").SetVal("benchmark_val")

	ok, err := newGate().Check(context.Background(), kvclient.NewTestClient(db))
	assert.False(t, ok)
	require.ErrorIs(t, err, preflight.ErrFailed)
	assert.Contains(t, err.Error(), "still present")
}

func TestFeatureCheckFailsOnMismatchedValue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSet("test_key", "benchmark_val", 0).SetVal("OK")
	mock.ExpectGet("test_key").SetVal("something else")

	ok, err := newGate().Check(context.Background(), kvclient.NewTestClient(db))
	assert.False(t, ok)
	require.ErrorIs(t, err, preflight.ErrFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureCheckFailsOnMissingValue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSet("test_key", "benchmark_val", 0).SetVal("OK")
	mock.ExpectGet("test_key").RedisNil()

	ok, err := newGate().Check(context.Background(), kvclient.NewTestClient(db))
	assert.False(t, ok)
	require.ErrorIs(t, err, preflight.ErrFailed)
}

func TestFeatureCheckTransportError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSet("test_key", "benchmark_val", 0).SetErr(errors.New("connection reset"))

	ok, err := newGate().Check(context.Background(), kvclient.NewTestClient(db))
	assert.False(t, ok)
	require.Error(t, err)
	assert.NotErrorIs(t, err, preflight.ErrFailed)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFeatureCheckHonorsCancellation(t *testing.T) {
	db, mock := redismock.NewClientMock()
	expectWrite(mock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	gate := &preflight.FeatureCheck{ExpiryWait: time.Hour}
	_, err := gate.Check(ctx, kvclient.NewTestClient(db))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPassGate(t *testing.T) {
	ok, err := preflight.Pass.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, preflight.NewFeatureCheck().ExpiryWait)
}
