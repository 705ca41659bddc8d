package service

import (
	"fmt"

	"flowengine/internal/graph"
	"flowengine/internal/instance"
	"flowengine/pkg/apperror"
)

// verifyNetwork re-checks a solved network: flow invariants on the residual
// graph, the reported flow value and cost, and max-flow/min-cut duality when
// a cut was derived.
func verifyNetwork(net *instance.Network, result *Result) error {
	inst := net.Instance
	g := net.Graph

	if err := graph.CheckFlow(g, inst.Source, inst.Sink); err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "flow verification failed").
			WithSeverity(apperror.SeverityCritical)
	}

	if inst.Source != inst.Sink {
		if got := g.FlowValue(inst.Source); got != result.Flow {
			return apperror.Newf(apperror.CodeConservationViolation,
				"reported flow %d but the network carries %d", result.Flow, got).
				WithSeverity(apperror.SeverityCritical)
		}
	}
	if got := g.TotalCost(); got != result.Cost {
		return apperror.Newf(apperror.CodeInternal,
			"reported cost %d but the network costs %d", result.Cost, got).
			WithSeverity(apperror.SeverityCritical)
	}

	if result.Cut != nil && result.Cut.Capacity != result.Flow {
		return apperror.Newf(apperror.CodeCutMismatch,
			"cut capacity %d differs from flow %d", result.Cut.Capacity, result.Flow).
			WithSeverity(apperror.SeverityCritical)
	}
	return nil
}

// verifyCirculation checks per-edge bounds and node balances of a
// circulation against the instance.
func verifyCirculation(inst *instance.Instance, flows []int64) error {
	if len(flows) != len(inst.Edges) {
		return apperror.Newf(apperror.CodeInternal,
			"circulation returned %d flows for %d edges", len(flows), len(inst.Edges))
	}

	verrs := apperror.NewValidationErrors()
	balance := make([]int64, inst.Nodes)
	for i, e := range inst.Edges {
		f := flows[i]
		if f < e.Lower || f > int64(e.Capacity) {
			verrs.AddError(apperror.CodeCapacityViolation,
				fmt.Sprintf("edges[%d] carries %d outside [%d, %d]", i, f, e.Lower, e.Capacity))
		}
		balance[e.From] -= f
		balance[e.To] += f
	}
	for v, b := range balance {
		if want := inst.Demands[v]; b != want {
			verrs.AddError(apperror.CodeConservationViolation,
				fmt.Sprintf("node %d receives %d net, demand is %d", v, b, want))
		}
	}

	if err := verrs.Err(); err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "circulation verification failed").
			WithSeverity(apperror.SeverityCritical)
	}
	return nil
}
