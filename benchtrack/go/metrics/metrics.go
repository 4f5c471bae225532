// Package metrics holds the Prometheus counters recorded while updating the
// benchmark history. A run is a short lived process, so instead of being
// scraped the counters can be written to a file for the node exporter's
// textfile collector.
package metrics

import (
	"github.com/benchtrack/infra/go/skerr"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds every metric defined in this package.
	Registry = prometheus.NewRegistry()

	// StoreAttempts counts commit attempts against the history branch.
	StoreAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "benchtrack_store_attempts_total",
		Help: "Number of times a new result was committed to the history branch.",
	}, []string{"branch"})

	// StoreRejections counts pushes refused because the branch moved.
	StoreRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "benchtrack_store_rejections_total",
		Help: "Number of pushes to the history branch rejected by the remote.",
	}, []string{"branch"})

	// Alerts counts measurements that regressed past the alert threshold.
	Alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "benchtrack_alerts_total",
		Help: "Number of benchmark measurements that exceeded the alert threshold.",
	}, []string{"suite"})

	// Comments counts comments posted on commits.
	Comments = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "benchtrack_comments_total",
		Help: "Number of comments posted on commits.",
	})
)

func init() {
	Registry.MustRegister(StoreAttempts, StoreRejections, Alerts, Comments)
}

// WriteTextfile writes the current value of every metric to filename in the
// Prometheus text format.
func WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, Registry); err != nil {
		return skerr.Wrapf(err, "writing metrics to %s", filename)
	}
	return nil
}
