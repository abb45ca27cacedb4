package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhotosAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photonest",
		Name:      "photos_analyzed_total",
		Help:      "Total number of photos sent through the vision analyzer",
	}, []string{"outcome"})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "photonest",
		Name:      "faces_detected_total",
		Help:      "Total number of faces stored from analyzer results",
	})

	FacesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "photonest",
		Name:      "faces_rejected_total",
		Help:      "Total number of face detections rejected as malformed",
	})

	ClustersFormed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photonest",
		Name:      "clusters_formed",
		Help:      "Clusters produced by the most recent run",
	})

	NoiseFaces = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photonest",
		Name:      "noise_faces",
		Help:      "Faces labeled noise in the most recent run",
	})

	PersonsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photonest",
		Name:      "persons_total",
		Help:      "Number of persons in the registry",
	})

	MergeConflictsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photonest",
		Name:      "merge_conflicts_open",
		Help:      "Unresolved merge conflicts awaiting review",
	})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photonest",
		Name:      "run_duration_seconds",
		Help:      "Duration of processing run phases",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"phase"})

	AnalysisQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photonest",
		Name:      "analysis_queue_depth",
		Help:      "Number of pending photo analysis jobs",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photonest",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
