package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/letsencrypt/certreq/test"
)

func TestWriteTextfile(t *testing.T) {
	reg := NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certreq_test_runs_total",
		Help: "Runs seen by the test",
	}, []string{"result"})
	reg.MustRegister(runs)
	runs.WithLabelValues("success").Add(2)

	path := filepath.Join(t.TempDir(), "certreq.prom")
	err := WriteTextfile(reg, path)
	test.AssertNotError(t, err, "WriteTextfile failed")

	contents, err := os.ReadFile(path)
	test.AssertNotError(t, err, "reading textfile")
	test.AssertContains(t, string(contents), "# TYPE certreq_test_runs_total counter")
	test.AssertContains(t, string(contents), `certreq_test_runs_total{result="success"} 2`)

	err = WriteTextfile(reg, filepath.Join(t.TempDir(), "missing", "certreq.prom"))
	test.AssertError(t, err, "wrote into a missing directory")
}

func TestNoopRegisterer(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "unused_total", Help: "unused"})
	test.AssertNotError(t, NoopRegisterer.Register(c), "noop Register failed")
	NoopRegisterer.MustRegister(c, c)
	test.Assert(t, NoopRegisterer.Unregister(c), "noop Unregister failed")
}
