// Package datadog emits migration metrics to a DogStatsD agent.
//
// It is the agent-push counterpart to the Pushgateway backend: prompush
// batches a run's counters and pushes once on flush, while this backend
// forwards every observation to a local or remote agent as it happens.
// Labels become DogStatsD tags ("key:value"), and an optional namespace
// prefixes every metric name.
package datadog

import (
	"fmt"
	"sort"

	"dumpmigrate/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds DogStatsD backend configuration.
type Config struct {
	// Addr is the agent address, e.g. "127.0.0.1:8125" or
	// "unix:///var/run/datadog/dsd.socket".
	Addr string

	// Namespace prefixes every metric name, e.g. "migrate.".
	Namespace string

	// GlobalTags ride along on every metric, e.g. "env:prod".
	GlobalTags []string
}

// Backend implements metrics.Backend on a statsd client. Install it
// process-wide with metrics.SetBackend.
type Backend struct {
	client *statsd.Client
}

// NewBackend connects to the agent named by cfg.Addr.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter implements metrics.Backend. DogStatsD counts are int64, so
// fractional deltas truncate.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Count(name, int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Histogram(name, value, labelsToTags(labels), 1)
}

// Flush implements metrics.Backend. Closing the statsd client is what
// drains its buffer, so Flush is a shutdown call here, mirroring how the
// engine flushes once at the end of a run.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// labelsToTags renders labels as "key:value" tags in key order, so repeated
// runs emit identical tag sets.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+":"+lbls[k])
	}
	return out
}
