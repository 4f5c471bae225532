// Package now provides a function to return the current time that is
// also easily overridden for testing.
package now

import (
	"context"
	"fmt"
	"time"
)

type contextKeyType string

// ContextKey is used by tests to make the time deterministic.
//
// That is, in a test, you can write a value into a context to use as the return
// value of Now().
//
//	var mockTime = time.Unix(0, 12).UTC()
//	ctx = context.WithValue(ctx, now.ContextKey, mockTime)
//
// The value set can also be a function that returns a time.Time.
const ContextKey contextKeyType = "overwriteNow"

// NowProvider is the type of function that can also be passed as a context
// value. The function will be evaluated every time Now() is called with that
// context.
type NowProvider func() time.Time

// Now returns the current time or the time from the context.
func Now(ctx context.Context) time.Time {
	if ts := ctx.Value(ContextKey); ts != nil {
		switch v := ts.(type) {
		case NowProvider:
			return v()
		case time.Time:
			return v
		default:
			panic(fmt.Sprintf("Unknown value for ContextKey: %v", v))
		}
	}
	return time.Now()
}

// UnixMillis returns Now(ctx) as milliseconds since the epoch, the unit used
// for timestamps in the persisted benchmark history.
func UnixMillis(ctx context.Context) int64 {
	return Now(ctx).UnixMilli()
}

// WithTime returns a child of ctx whose Now() is always ts.
func WithTime(ctx context.Context, ts time.Time) context.Context {
	return context.WithValue(ctx, ContextKey, ts)
}
