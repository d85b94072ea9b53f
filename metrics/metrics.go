// Package metrics holds helpers for the Prometheus collectors that
// components register. A run is short lived, so collected values are
// exported by writing a node_exporter textfile rather than by serving them.
package metrics

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// noopRegisterer accepts every collector and records nothing.
type noopRegisterer struct{}

func (noopRegisterer) Register(_ prometheus.Collector) error { return nil }

func (noopRegisterer) MustRegister(_ ...prometheus.Collector) {}

func (noopRegisterer) Unregister(_ prometheus.Collector) bool { return true }

// NoopRegisterer accepts collectors without keeping them. Counters
// registered on it still count but are never gathered.
var NoopRegisterer = prometheus.Registerer(noopRegisterer{})

// NewRegistry returns an empty registry. Runs never use the global default
// registry, so two runs in one process (as in tests) start from zero.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, atomically replacing any previous file. The directory of path
// must exist.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	if err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, g)
}
