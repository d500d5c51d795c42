package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Editor metrics, registered on the default registry via promauto. The
// gauges mirror the aggregate sizes; counters track how often the
// expensive operations run.

var (
	// Nodes tracks the current waypoint count of the loaded course.
	Nodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waycourse_nodes",
		Help: "Current number of waypoints in the loaded course",
	})

	// Connections tracks the current connection count.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waycourse_connections",
		Help: "Current number of connections in the loaded course",
	})

	// Markers tracks the current map marker count.
	Markers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waycourse_markers",
		Help: "Current number of map markers in the loaded course",
	})

	// SpatialRebuilds counts lazy spatial index rebuilds.
	SpatialRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waycourse_spatial_rebuilds_total",
		Help: "Total number of spatial index rebuilds",
	})

	// ToolExecutions counts executed curve tools, labeled by tool kind.
	ToolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waycourse_tool_executions_total",
		Help: "Total number of executed curve tools",
	}, []string{"kind"})

	// DedupRuns counts deduplication passes over the course.
	DedupRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waycourse_dedup_runs_total",
		Help: "Total number of deduplication passes",
	})

	// DedupRemovedNodes counts waypoints removed by deduplication.
	DedupRemovedNodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waycourse_dedup_removed_nodes_total",
		Help: "Total number of duplicate waypoints removed",
	})

	// Undos and Redos count history traversals.
	Undos = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waycourse_undo_total",
		Help: "Total number of undo operations",
	})
	Redos = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waycourse_redo_total",
		Help: "Total number of redo operations",
	})
)

// SetGraphSize updates the aggregate gauges in one place.
func SetGraphSize(nodes, connections, markers int) {
	Nodes.Set(float64(nodes))
	Connections.Set(float64(connections))
	Markers.Set(float64(markers))
}
