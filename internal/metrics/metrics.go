package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NodesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_nodes_added_total",
		Help: "Total number of nodes integrated into a scene, labelled by class.",
	}, []string{"class"})

	NodesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_nodes_removed_total",
		Help: "Total number of nodes removed from a scene, labelled by class.",
	}, []string{"class"})

	LiveNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_live_nodes",
		Help: "Number of live nodes in the most recently mutated scene.",
	})

	SingletonMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_singleton_merges_total",
		Help: "Total number of adds resolved by merging into an existing singleton.",
	})

	IDRenames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_id_renames_total",
		Help: "Total number of node IDs reassigned to avoid a collision.",
	})

	DanglingEdgesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_dangling_edges_purged_total",
		Help: "Total number of reference edges removed because an endpoint was gone.",
	})

	UndoOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_undo_operations_total",
		Help: "Total number of undo stack operations, labelled by op (save, undo, redo).",
	}, []string{"op"})

	UndoDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_undo_depth",
		Help: "Current number of frames on the undo stack.",
	})

	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_imports_total",
		Help: "Total number of scene imports, labelled by status.",
	}, []string{"status"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scene_import_duration_ms",
		Help:    "Scene import latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	OpsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_ops_enqueued_total",
		Help: "Total number of operations placed on the scene executor queue.",
	})

	OpsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_ops_dropped_total",
		Help: "Total number of operations rejected due to a full queue.",
	})

	OpDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scene_op_duration_ms",
		Help:    "Scene operation latency in milliseconds, queue wait included.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_queue_utilization_ratio",
		Help: "Current executor queue utilization (0–1).",
	})
)
