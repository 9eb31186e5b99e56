package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DownloadSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flare",
			Name:      "download_sessions_total",
			Help:      "Download sessions by terminal result.",
		},
		[]string{"result"},
	)

	ActiveDownloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flare",
			Name:      "active_downloads",
			Help:      "Number of download sessions currently running.",
		},
	)

	DownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flare",
			Name:      "download_duration_seconds",
			Help:      "Wall-clock duration of finished download sessions.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	ParseAnomalies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flare",
			Name:      "parse_anomalies_total",
			Help:      "Tool output lines that looked like progress but could not be parsed.",
		},
	)

	UpdateChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flare",
			Name:      "update_checks_total",
			Help:      "Update checks by outcome.",
		},
		[]string{"result"},
	)

	UpdateFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flare",
			Name:      "update_files_total",
			Help:      "Managed files processed by update applies, by outcome.",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register registers the Flare metrics into the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(DownloadSessions, ActiveDownloads, DownloadDuration, ParseAnomalies, UpdateChecks, UpdateFiles)
	})
}
