package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "job_success", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_failure", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestAssetMetricsExportsPublishCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewAssetMetrics(reg)
	metrics.IncPublish("slide_image")
	metrics.IncPublish("slide_image")
	metrics.IncPublishError("slide_audio")
	metrics.ObserveUpload("slide_image", 300*time.Millisecond)
	metrics.IncURLIssued("download")
	metrics.IncResign()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "asset_publishes_total", "kind", "slide_image"); err != nil {
		t.Fatalf("fetch publishes: %v", err)
	} else if got != 2 {
		t.Fatalf("expected publishes=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "asset_publish_errors_total", "kind", "slide_audio"); err != nil {
		t.Fatalf("fetch publish errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "access_urls_issued_total", "url_type", "download"); err != nil {
		t.Fatalf("fetch urls issued: %v", err)
	} else if got != 1 {
		t.Fatalf("expected issued=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "asset_upload_duration_seconds", "kind", "slide_image"); err != nil {
		t.Fatalf("fetch upload duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected upload sum > 0, got %f", got)
	}
}

func TestRenderMetricsExportsTerminalStatuses(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRenderMetrics(reg)
	metrics.IncSubmission("shotstack")
	metrics.IncCompletion("shotstack", "done")
	metrics.ObserveRender("shotstack", 90*time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "render_submissions_total", "provider", "shotstack"); err != nil {
		t.Fatalf("fetch submissions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected submissions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "render_completions_total", "status", "done"); err != nil {
		t.Fatalf("fetch completions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected completions=1, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
