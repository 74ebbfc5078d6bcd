package authcore

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Add(MetricSessionInvalidated, 5)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Errorf("LoginSuccess: got %d", got)
	}
	if got := m.Value(MetricSessionInvalidated); got != 5 {
		t.Errorf("SessionInvalidated: got %d", got)
	}
	if got := m.Value(MetricLogout); got != 0 {
		t.Errorf("untouched counter: got %d", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Errorf("disabled registry counted: %d", got)
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Errorf("disabled snapshot not empty: %+v", snap)
	}
	if snap.Counters == nil || snap.Histograms == nil {
		t.Error("disabled snapshot maps must be non-nil")
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	m.Add(MetricLogout, 3)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Error("nil registry returned a value")
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateSuccess); got != goroutines*perGoroutine {
		t.Errorf("lost increments: got %d want %d", got, goroutines*perGoroutine)
	}
}

func TestLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := []time.Duration{
		2 * time.Millisecond,   // bucket 0
		8 * time.Millisecond,   // bucket 1
		40 * time.Millisecond,  // bucket 3
		900 * time.Millisecond, // bucket 7
	}
	for _, d := range samples {
		m.Observe(MetricValidateLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricValidateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count: got %d", len(buckets))
	}

	want := map[int]uint64{0: 1, 1: 1, 3: 1, 7: 1}
	for i, count := range buckets {
		if count != want[i] {
			t.Errorf("bucket %d: got %d want %d", i, count, want[i])
		}
	}
}

func TestHistogramDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Observe(MetricValidateLatency, time.Millisecond)

	if len(m.Snapshot().Histograms) != 0 {
		t.Error("histogram recorded while disabled")
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}

	for _, tc := range tests {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Errorf("bucketIndex(%v): got %d want %d", tc.d, got, tc.want)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)

	snap := m.Snapshot()
	snap.Counters[MetricLoginSuccess] = 999

	if m.Value(MetricLoginSuccess) != 1 {
		t.Error("snapshot mutation reached the registry")
	}
}
