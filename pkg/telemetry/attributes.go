package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys.
const (
	AttrInstance   = "flow.instance"
	AttrRunID      = "flow.run_id"
	AttrGraphNodes = "flow.graph.nodes"
	AttrGraphEdges = "flow.graph.edges"
	AttrSource     = "flow.source"
	AttrSink       = "flow.sink"

	AttrMode       = "flow.mode"
	AttrAlgorithm  = "flow.algorithm"
	AttrTarget     = "flow.target"
	AttrExact      = "flow.target.exact"
	AttrIterations = "flow.iterations"
	AttrValue      = "flow.value"
	AttrCost       = "flow.cost"
	AttrStatus     = "flow.status"
	AttrCacheHit   = "flow.cache_hit"

	AttrReportFormat = "report.format"
	AttrReportBytes  = "report.bytes"
)

// GraphAttributes describes the solved network.
func GraphAttributes(nodes, edges, source, sink int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrGraphNodes, nodes),
		attribute.Int(AttrGraphEdges, edges),
		attribute.Int(AttrSource, source),
		attribute.Int(AttrSink, sink),
	}
}

// RequestAttributes describes a solve request. target < 0 means none.
func RequestAttributes(mode, algorithm string, target int64, exact bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrMode, mode),
		attribute.String(AttrAlgorithm, algorithm),
	}
	if target >= 0 {
		attrs = append(attrs,
			attribute.Int64(AttrTarget, target),
			attribute.Bool(AttrExact, exact),
		)
	}
	return attrs
}

// ResultAttributes describes a solve outcome. Flow values above MaxInt64 are
// clamped.
func ResultAttributes(status string, flow uint64, cost int64, iterations int, cacheHit bool) []attribute.KeyValue {
	value := int64(flow)
	if flow > 1<<63-1 {
		value = 1<<63 - 1
	}
	return []attribute.KeyValue{
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrValue, value),
		attribute.Int64(AttrCost, cost),
		attribute.Int(AttrIterations, iterations),
		attribute.Bool(AttrCacheHit, cacheHit),
	}
}
