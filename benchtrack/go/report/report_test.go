package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	err    error
	bodies []string
}

func (f *fakeNotifier) Comment(ctx context.Context, commitID, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bodies = append(f.bodies, body)
	return fmt.Sprintf("%s/commit/%s#comment-%d", repoURL, commitID, len(f.bodies)), nil
}

func newDispatcher(t *testing.T, n Notifier, opts Options) *Dispatcher {
	opts.Name = "Go Benchmark"
	return New(n, newFormatter(t), opts)
}

func TestDispatch_NoPrevious_DoesNothing(t *testing.T) {
	n := &fakeNotifier{}
	d := newDispatcher(t, n, Options{CommentAlways: true, CommentOnAlert: true, FailOnAlert: true, AlertThreshold: 1, FailThreshold: 1})
	current, _ := suites()

	require.NoError(t, d.Dispatch(context.Background(), current, nil))
	assert.Empty(t, n.bodies)
}

func TestDispatch_CommentAlways_PostsComparison(t *testing.T) {
	n := &fakeNotifier{}
	d := newDispatcher(t, n, Options{CommentAlways: true})
	current, previous := suites()

	require.NoError(t, d.Dispatch(context.Background(), current, previous))
	require.Len(t, n.bodies, 1)
	assert.True(t, strings.HasPrefix(n.bodies[0], "# Go Benchmark\n"))
}

func TestDispatch_CommentOnAlert_PostsAlertOnlyWhenRegressed(t *testing.T) {
	n := &fakeNotifier{}
	current, previous := suites()

	d := newDispatcher(t, n, Options{CommentOnAlert: true, AlertThreshold: 2.5})
	require.NoError(t, d.Dispatch(context.Background(), current, previous))
	assert.Empty(t, n.bodies)

	d = newDispatcher(t, n, Options{CommentOnAlert: true, AlertThreshold: 1.5})
	require.NoError(t, d.Dispatch(context.Background(), current, previous))
	require.Len(t, n.bodies, 1)
	assert.Contains(t, n.bodies[0], "**Performance Alert**")
}

func TestDispatch_FailOnAlert_SameThresholds_ReturnsBodyAsMessage(t *testing.T) {
	current, previous := suites()
	d := newDispatcher(t, nil, Options{FailOnAlert: true, AlertThreshold: 1.5, FailThreshold: 1.5})

	err := d.Dispatch(context.Background(), current, previous)
	var exceeded *ThresholdExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, 1, exceeded.Failures)
	assert.Equal(t, 1, exceeded.Alerts)
	assert.True(t, strings.HasPrefix(err.Error(), "# :warning: **Performance Alert**"))
}

func TestDispatch_FailOnAlert_HigherFailThreshold_PrefixesCounts(t *testing.T) {
	current, previous := suites()
	current.Benches = append(current.Benches, types.Measurement{Name: "C", Value: 10, Unit: "ns/op"})
	previous.Benches = append(previous.Benches, types.Measurement{Name: "C", Value: 16, Unit: "ns/op"})
	n := &fakeNotifier{}
	d := newDispatcher(t, n, Options{CommentOnAlert: true, FailOnAlert: true, AlertThreshold: 1.5, FailThreshold: 1.8})

	err := d.Dispatch(context.Background(), current, previous)
	var exceeded *ThresholdExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, 1, exceeded.Failures)
	assert.Equal(t, 2, exceeded.Alerts)
	assert.True(t, strings.HasPrefix(err.Error(), "1 of 2 alerts exceeded the failure threshold `1.80` specified by fail-threshold input:\n\n"))
	assert.Contains(t, err.Error(), "Comment was generated at "+repoURL+"/commit/c2#comment-1")
}

func TestDispatch_FailOnAlert_BelowFailThreshold_Succeeds(t *testing.T) {
	current, previous := suites()
	d := newDispatcher(t, nil, Options{FailOnAlert: true, AlertThreshold: 1.5, FailThreshold: 3})
	require.NoError(t, d.Dispatch(context.Background(), current, previous))
}

func TestDispatch_NotifierFails_FailOnAlertDisabled_Continues(t *testing.T) {
	current, previous := suites()
	d := newDispatcher(t, &fakeNotifier{err: errors.New("api down")}, Options{CommentAlways: true, CommentOnAlert: true, AlertThreshold: 1.5})
	require.NoError(t, d.Dispatch(context.Background(), current, previous))
}

func TestDispatch_NotifierFails_FailOnAlertEnabled_ReturnsError(t *testing.T) {
	current, previous := suites()
	d := newDispatcher(t, &fakeNotifier{err: errors.New("api down")}, Options{CommentAlways: true, FailOnAlert: true, AlertThreshold: 1.5, FailThreshold: 1.5})
	err := d.Dispatch(context.Background(), current, previous)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")
}

func TestDispatch_AlertCommentFails_FailOnAlertEnabled_ReturnsError(t *testing.T) {
	current, previous := suites()
	d := newDispatcher(t, &fakeNotifier{err: errors.New("api down")}, Options{CommentOnAlert: true, FailOnAlert: true, AlertThreshold: 1.5, FailThreshold: 1.5})
	err := d.Dispatch(context.Background(), current, previous)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commenting on c2")
}

func TestDispatch_CommentWithoutNotifier(t *testing.T) {
	current, previous := suites()
	d := newDispatcher(t, nil, Options{CommentAlways: true})
	require.NoError(t, d.Dispatch(context.Background(), current, previous))

	d = newDispatcher(t, nil, Options{CommentAlways: true, FailOnAlert: true, AlertThreshold: 3, FailThreshold: 3})
	require.Error(t, d.Dispatch(context.Background(), current, previous))
}
