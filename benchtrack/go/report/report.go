// Package report turns the result of a store write into notifications: a
// comparison comment, an alert comment and a failure for severe regressions.
//
// Dispatch must only be called after the new suite has been durably written,
// so that nothing is reported for a result that was never recorded.
package report

import (
	"context"
	"fmt"

	"github.com/benchtrack/infra/benchtrack/go/alerts"
	"github.com/benchtrack/infra/benchtrack/go/metrics"
	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
)

// Notifier posts a comment on a commit and returns the URL of the comment.
type Notifier interface {
	Comment(ctx context.Context, commitID, body string) (string, error)
}

// ThresholdExceededError is returned by Dispatch when fail-on-alert is set
// and at least one measurement regressed past the fail threshold.
type ThresholdExceededError struct {
	Failures int
	Alerts   int
	Message  string
}

func (e *ThresholdExceededError) Error() string {
	return e.Message
}

// Options controls which notifications are sent.
type Options struct {
	Name           string
	CommentAlways  bool
	CommentOnAlert bool
	FailOnAlert    bool
	AlertThreshold float64
	FailThreshold  float64
	CCUsers        []string
}

// Dispatcher sends notifications for a recorded suite.
type Dispatcher struct {
	notifier  Notifier
	formatter *MarkdownFormatter
	opts      Options
}

// New returns a Dispatcher. notifier may be nil if neither CommentAlways nor
// CommentOnAlert is set.
func New(notifier Notifier, formatter *MarkdownFormatter, opts Options) *Dispatcher {
	return &Dispatcher{
		notifier:  notifier,
		formatter: formatter,
		opts:      opts,
	}
}

// Dispatch compares current against previous and sends the configured
// notifications. A nil previous means there is nothing to compare against
// and is not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, current, previous *types.Suite) error {
	if previous == nil {
		sklog.Debugf("Alert check was skipped because previous benchmark result was not found")
		return nil
	}
	if err := d.comment(ctx, current, previous); err != nil {
		return err
	}
	return d.alert(ctx, current, previous)
}

// post sends body as a comment. A failure to comment only fails the run when
// fail-on-alert is set; otherwise it is logged and an empty URL is returned.
func (d *Dispatcher) post(ctx context.Context, commitID, body string) (string, error) {
	url, err := d.send(ctx, commitID, body)
	if err != nil {
		if d.opts.FailOnAlert {
			return "", err
		}
		sklog.Warningf("Failed to comment: %s", err)
		return "", nil
	}
	return url, nil
}

func (d *Dispatcher) send(ctx context.Context, commitID, body string) (string, error) {
	if d.notifier == nil {
		return "", skerr.Fmt("cannot comment on %s: no notifier configured", commitID)
	}
	sklog.Debugf("Sending comment:\n%s", body)
	url, err := d.notifier.Comment(ctx, commitID, body)
	if err != nil {
		return "", skerr.Wrapf(err, "commenting on %s", commitID)
	}
	metrics.Comments.Inc()
	sklog.Infof("Comment was sent to %s", url)
	return url, nil
}

func (d *Dispatcher) comment(ctx context.Context, current, previous *types.Suite) error {
	if !d.opts.CommentAlways {
		sklog.Debugf("Comment check was skipped because comment-always is disabled")
		return nil
	}
	sklog.Debugf("Commenting about benchmark comparison")
	body, err := d.formatter.Comparison(d.opts.Name, current, previous)
	if err != nil {
		return err
	}
	_, err = d.post(ctx, current.Commit.ID, body)
	return err
}

func (d *Dispatcher) alert(ctx context.Context, current, previous *types.Suite) error {
	if !d.opts.CommentOnAlert && !d.opts.FailOnAlert {
		sklog.Debugf("Alert check was skipped because both comment-on-alert and fail-on-alert were disabled")
		return nil
	}

	found := alerts.Detect(current, previous, d.opts.AlertThreshold)
	if len(found) == 0 {
		sklog.Debugf("No performance alert found")
		return nil
	}
	metrics.Alerts.WithLabelValues(d.opts.Name).Add(float64(len(found)))
	sklog.Debugf("Found %d alerts", len(found))

	body, err := d.formatter.Alert(d.opts.Name, current, previous, found, d.opts.AlertThreshold, d.opts.CCUsers)
	if err != nil {
		return err
	}
	message := body
	if d.opts.CommentOnAlert {
		url, err := d.post(ctx, current.Commit.ID, body)
		if err != nil {
			return err
		}
		if url != "" {
			message = fmt.Sprintf("%s\nComment was generated at %s", body, url)
		}
	}

	if !d.opts.FailOnAlert {
		sklog.Warning(message)
		return nil
	}
	failures := alerts.Exceeding(found, d.opts.FailThreshold)
	if len(failures) == 0 {
		sklog.Debugf("None of the %d alerts exceeded the failure threshold %s", len(found), FloatStr(d.opts.FailThreshold))
		return nil
	}
	if d.opts.FailThreshold != d.opts.AlertThreshold {
		message = fmt.Sprintf("%d of %d alerts exceeded the failure threshold `%s` specified by fail-threshold input:\n\n%s",
			len(failures), len(found), FloatStr(d.opts.FailThreshold), message)
	}
	return &ThresholdExceededError{
		Failures: len(failures),
		Alerts:   len(found),
		Message:  message,
	}
}
