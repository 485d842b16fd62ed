package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssetMetrics tracks publication and URL issuance activity.
type AssetMetrics struct {
	publishes     *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	uploadSeconds *prometheus.HistogramVec
	urlsIssued    *prometheus.CounterVec
	resigns       prometheus.Counter
}

// NewAssetMetrics registers asset pipeline metrics on the provided registerer.
func NewAssetMetrics(reg prometheus.Registerer) *AssetMetrics {
	if reg == nil {
		return &AssetMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_publishes_total",
		Help: "Completed asset publications by artifact kind.",
	}, []string{"kind"})
	publishErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_publish_errors_total",
		Help: "Failed asset publications by artifact kind.",
	}, []string{"kind"})
	uploadSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "asset_upload_duration_seconds",
		Help:    "Duration of object uploads in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	urlsIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_urls_issued_total",
		Help: "Access URLs issued by url type.",
	}, []string{"url_type"})
	resigns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_url_resigns_total",
		Help: "Download URLs reissued after expiry.",
	})
	reg.MustRegister(publishes, publishErrors, uploadSeconds, urlsIssued, resigns)
	return &AssetMetrics{
		publishes:     publishes,
		publishErrors: publishErrors,
		uploadSeconds: uploadSeconds,
		urlsIssued:    urlsIssued,
		resigns:       resigns,
	}
}

// IncPublish increments the publication counter for the artifact kind.
func (a *AssetMetrics) IncPublish(kind string) {
	if a == nil || a.publishes == nil {
		return
	}
	a.publishes.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPublishError increments the failed-publication counter for the artifact kind.
func (a *AssetMetrics) IncPublishError(kind string) {
	if a == nil || a.publishErrors == nil {
		return
	}
	a.publishErrors.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveUpload records an object upload duration for the artifact kind.
func (a *AssetMetrics) ObserveUpload(kind string, duration time.Duration) {
	if a == nil || a.uploadSeconds == nil {
		return
	}
	a.uploadSeconds.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncURLIssued increments the issued-URL counter for the url type.
func (a *AssetMetrics) IncURLIssued(urlType string) {
	if a == nil || a.urlsIssued == nil {
		return
	}
	a.urlsIssued.WithLabelValues(normalizeLabel(urlType)).Inc()
}

// IncResign counts a download URL reissued because the stored one expired.
func (a *AssetMetrics) IncResign() {
	if a == nil || a.resigns == nil {
		return
	}
	a.resigns.Inc()
}

// RenderMetrics tracks provider render jobs.
type RenderMetrics struct {
	submissions *prometheus.CounterVec
	completions *prometheus.CounterVec
	renderTime  *prometheus.HistogramVec
}

// NewRenderMetrics registers render job metrics on the provided registerer.
func NewRenderMetrics(reg prometheus.Registerer) *RenderMetrics {
	if reg == nil {
		return &RenderMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "render_submissions_total",
		Help: "Render jobs submitted by provider.",
	}, []string{"provider"})
	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "render_completions_total",
		Help: "Render jobs reaching a terminal status.",
	}, []string{"provider", "status"})
	renderTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Wall-clock time from submission to terminal status.",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800},
	}, []string{"provider"})
	reg.MustRegister(submissions, completions, renderTime)
	return &RenderMetrics{
		submissions: submissions,
		completions: completions,
		renderTime:  renderTime,
	}
}

// IncSubmission counts a submitted render job.
func (r *RenderMetrics) IncSubmission(provider string) {
	if r == nil || r.submissions == nil {
		return
	}
	r.submissions.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncCompletion counts a render job reaching the given terminal status.
func (r *RenderMetrics) IncCompletion(provider, status string) {
	if r == nil || r.completions == nil {
		return
	}
	r.completions.WithLabelValues(normalizeLabel(provider), normalizeLabel(status)).Inc()
}

// ObserveRender records the total render duration.
func (r *RenderMetrics) ObserveRender(provider string, duration time.Duration) {
	if r == nil || r.renderTime == nil {
		return
	}
	r.renderTime.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}
