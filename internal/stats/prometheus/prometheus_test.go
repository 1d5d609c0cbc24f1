package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baletool/bale/internal/stats"
)

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c == nil {
		t.Fatal("New(nil) returned nil")
	}
	if c.registry == nil {
		t.Error("registry should not be nil")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricBytesRead, 4096)
	c.IncCounter(stats.MetricBytesRead, 1024)

	val, ok := gatherValue(t, reg, stats.MetricBytesRead, func(m *metricValue) float64 {
		return m.counter
	})
	if !ok {
		t.Fatalf("counter %s not found in registry", stats.MetricBytesRead)
	}
	if val != 5120 {
		t.Errorf("counter value = %v, want 5120", val)
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge("bale_last_level", 9)

	val, ok := gatherValue(t, reg, "bale_last_level", func(m *metricValue) float64 {
		return m.gauge
	})
	if !ok {
		t.Fatal("gauge bale_last_level not found in registry")
	}
	if val != 9 {
		t.Errorf("gauge value = %v, want 9", val)
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram(stats.MetricCompressionRatio, 0.31)
	c.ObserveHistogram(stats.MetricCompressionRatio, 0.44)
	c.ObserveHistogram(stats.MetricCompressionRatio, 1.02)

	val, ok := gatherValue(t, reg, stats.MetricCompressionRatio, func(m *metricValue) float64 {
		return float64(m.histogramCount)
	})
	if !ok {
		t.Fatalf("histogram %s not found in registry", stats.MetricCompressionRatio)
	}
	if val != 3 {
		t.Errorf("histogram count = %v, want 3", val)
	}
}

func TestCollector_ReuseMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter("reuse_test", 1)
	c.IncCounter("reuse_test", 1)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	count := 0
	for _, m := range metrics {
		if m.GetName() == "reuse_test" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 metric named reuse_test, got %d", count)
	}
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: stats.MetricFramesCompressed,
		Help: stats.MetricFramesCompressed,
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter(stats.MetricFramesCompressed, 5)

	val, ok := gatherValue(t, reg, stats.MetricFramesCompressed, func(m *metricValue) float64 {
		return m.counter
	})
	if !ok {
		t.Fatal("counter not found in registry")
	}
	if val != 105 {
		t.Errorf("counter value = %v, want 105", val)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.IncCounter("concurrent_counter", 1)
				c.ObserveHistogram("concurrent_histogram", float64(j))
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	val, ok := gatherValue(t, reg, "concurrent_counter", func(m *metricValue) float64 {
		return m.counter
	})
	if !ok {
		t.Fatal("concurrent_counter not found")
	}
	if val != 1000 {
		t.Errorf("counter value = %v, want 1000", val)
	}
}

// metricValue flattens the gathered protobuf for assertions.
type metricValue struct {
	counter        float64
	gauge          float64
	histogramCount uint64
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, pick func(*metricValue) float64) (float64, bool) {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, m := range metrics {
		if m.GetName() != name || len(m.GetMetric()) == 0 {
			continue
		}
		raw := m.GetMetric()[0]
		mv := &metricValue{
			counter:        raw.GetCounter().GetValue(),
			gauge:          raw.GetGauge().GetValue(),
			histogramCount: raw.GetHistogram().GetSampleCount(),
		}
		return pick(mv), true
	}
	return 0, false
}
