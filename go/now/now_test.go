package now

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNow_ConstValue_Success(t *testing.T) {
	var mockTime = time.Unix(12, 11).UTC()
	backgroundCtx := context.Background()
	ctx := context.WithValue(backgroundCtx, ContextKey, mockTime)

	require.NotEqual(t, mockTime, Now(backgroundCtx))
	require.Equal(t, mockTime, Now(ctx))
}

func TestNow_NowProvider_Success(t *testing.T) {
	var monotonicTime int64 = 0
	var mockTimeProvider = func() time.Time {
		monotonicTime += 1
		return time.Unix(monotonicTime, 0).UTC()
	}
	ctx := context.WithValue(context.Background(), ContextKey, NowProvider(mockTimeProvider))

	require.Equal(t, int64(1), Now(ctx).Unix())
	require.Equal(t, int64(2), Now(ctx).Unix())
	require.Equal(t, int64(2), monotonicTime)
}

func TestNow_InvalidValue_Panics(t *testing.T) {
	ctx := context.WithValue(context.Background(), ContextKey, "strings are not valid types for ContextKey")

	require.Panics(t, func() {
		Now(ctx)
	})
}

func TestUnixMillis_WithTime_ReturnsMilliseconds(t *testing.T) {
	ctx := WithTime(context.Background(), time.Unix(1700000000, 5e6))
	require.Equal(t, int64(1700000000005), UnixMillis(ctx))
}
