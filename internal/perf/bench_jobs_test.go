package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/bookexpress/cotizador/internal/jobs"
)

func TestCatalogImportThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	for i := 0; i < 40; i++ {
		tracker := metrics.Track("catalog:import")
		time.Sleep(5 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending import tracker: %v", err)
		}
		metrics.AddImportRows("inserted", 25)
	}

	for i := 0; i < 10; i++ {
		tracker := metrics.Track("report:export")
		time.Sleep(10 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending export tracker: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		tracker := metrics.Track("catalog:import")
		if err := tracker.End(errors.New("import already running")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "cotizador_jobs_total", map[string]string{"job": "catalog:import", "status": "success"})
	failure := metricValue(t, families, "cotizador_jobs_total", map[string]string{"job": "catalog:import", "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("import success ratio too low: %f", ratio)
	}

	rows := metricValue(t, families, "cotizador_catalog_import_rows_total", map[string]string{"outcome": "inserted"})
	if rows != 1000 {
		t.Fatalf("inserted rows = %f, want 1000", rows)
	}

	if mean := histogramMean(t, families, "cotizador_job_duration_seconds", map[string]string{"job": "report:export"}); mean > 2.0 {
		t.Fatalf("export duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		val, ok := labels[lp.GetName()]
		if !ok {
			continue
		}
		if lp.GetValue() != val {
			return false
		}
		matched++
	}
	return matched == len(labels)
}
