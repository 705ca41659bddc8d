package instance

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flowengine/internal/algorithms"
	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const diamondYAML = `
name: diamond
nodes: 4
source: 0
sink: 3
edges:
  - {from: 0, to: 1, capacity: 2, cost: 1}
  - {from: 0, to: 2, capacity: 2, cost: 4}
  - {from: 1, to: 3, capacity: 2, cost: 1, label: north}
  - {from: 2, to: 3, capacity: 2, cost: 4}
`

func decode(t *testing.T, doc string) *Instance {
	t.Helper()
	inst, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	return inst
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecode(t *testing.T) {
	inst := decode(t, diamondYAML)

	assert.Equal(t, "diamond", inst.Name)
	assert.Equal(t, 4, inst.Nodes)
	assert.Equal(t, 3, inst.Sink)
	require.Len(t, inst.Edges, 4)
	assert.Equal(t, EdgeSpec{From: 1, To: 3, Capacity: 2, Cost: 1, Label: "north"}, inst.Edges[2])
	assert.False(t, inst.IsCirculation())
	assert.Nil(t, inst.FlowTarget())
}

func TestDecode_JSON(t *testing.T) {
	inst := decode(t, `{"nodes": 2, "source": 0, "sink": 1, "target": 3, "exact": true, "edges": [{"from": 0, "to": 1, "capacity": "inf", "cost": 2}]}`)

	require.Len(t, inst.Edges, 1)
	assert.Equal(t, Infinite, inst.Edges[0].Capacity)
	assert.Equal(t, algorithms.Exactly(3), inst.FlowTarget())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unknown field", "nodes: 2\ncolour: red\n"},
		{"bad capacity", "nodes: 2\nedges:\n  - {from: 0, to: 1, capacity: lots}\n"},
		{"capacity sequence", "nodes: 2\nedges:\n  - {from: 0, to: 1, capacity: [1]}\n"},
		{"not yaml", "nodes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeInvalidInstance), "got %v", err)
		})
	}
}

func TestCapacity_RoundTrip(t *testing.T) {
	inst := &Instance{
		Nodes: 2,
		Sink:  1,
		Edges: []EdgeSpec{{From: 0, To: 1, Capacity: Infinite}, {From: 0, To: 1, Capacity: 5}},
	}

	var buf bytes.Buffer
	require.NoError(t, inst.Encode(&buf))
	assert.Contains(t, buf.String(), "capacity: inf")

	back := decode(t, buf.String())
	assert.Equal(t, inst.Edges, back.Edges)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "small-net.yaml", "nodes: 2\nsource: 0\nsink: 1\nedges:\n  - {from: 0, to: 1, capacity: 7}\n")

	inst, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "small-net", inst.Name, "name defaults to the file name")

	_, err = Load(writeFile(t, "net.txt", "nodes: 2"))
	assert.True(t, apperror.Is(err, apperror.CodeUnsupportedFile))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	_, err = Load(writeFile(t, "broken.json", "{"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInstance))
}

func TestValidate(t *testing.T) {
	target := uint64(3)

	tests := []struct {
		name      string
		inst      Instance
		wantCodes []apperror.ErrorCode
	}{
		{
			name: "valid",
			inst: Instance{Nodes: 2, Sink: 1, Edges: []EdgeSpec{{From: 0, To: 1, Capacity: 1}}},
		},
		{
			name:      "no nodes",
			inst:      Instance{Nodes: 0},
			wantCodes: []apperror.ErrorCode{apperror.CodeInvalidNodeCount},
		},
		{
			name:      "bad terminals",
			inst:      Instance{Nodes: 2, Source: -1, Sink: 2},
			wantCodes: []apperror.ErrorCode{apperror.CodeInvalidSource, apperror.CodeInvalidSink},
		},
		{
			name: "bad edges",
			inst: Instance{Nodes: 2, Sink: 1, Edges: []EdgeSpec{
				{From: 0, To: 5, Capacity: 1},
				{From: 0, To: 1, Capacity: -1},
				{From: 0, To: 1, Lower: 3, Capacity: 2},
			}},
			wantCodes: []apperror.ErrorCode{apperror.CodeNodeOutOfRange, apperror.CodeNegativeCapacity, apperror.CodeInvalidBounds},
		},
		{
			name:      "target on circulation",
			inst:      Instance{Nodes: 2, Demands: map[int]int64{0: -1, 1: 1}, Target: &target},
			wantCodes: []apperror.ErrorCode{apperror.CodeInvalidTarget},
		},
		{
			name:      "exact without target",
			inst:      Instance{Nodes: 2, Sink: 1, Exact: true},
			wantCodes: []apperror.ErrorCode{apperror.CodeInvalidTarget},
		},
		{
			name:      "demand out of range",
			inst:      Instance{Nodes: 2, Demands: map[int]int64{4: 1}},
			wantCodes: []apperror.ErrorCode{apperror.CodeNodeOutOfRange},
		},
		{
			name: "circulation ignores terminals",
			inst: Instance{Nodes: 2, Source: 9, Sink: 9, Edges: []EdgeSpec{{From: 0, To: 1, Lower: 1, Capacity: 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inst.Validate()
			if len(tt.wantCodes) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs *apperror.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs.Errors, len(tt.wantCodes))
			for i, code := range tt.wantCodes {
				assert.Equal(t, code, verrs.Errors[i].Code)
			}
			assert.Equal(t, apperror.ExitUsage, apperror.ExitCode(err))
		})
	}
}

func TestWarnings(t *testing.T) {
	inst := Instance{Nodes: 2, Source: 1, Sink: 1, Edges: []EdgeSpec{{From: 0, To: 0, Capacity: 4}}}

	require.NoError(t, inst.Validate(), "warnings do not fail validation")
	warnings := inst.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "source equals sink")
	assert.Contains(t, warnings[1], "self-loop")
}

func TestBuild(t *testing.T) {
	inst := decode(t, diamondYAML)

	net, err := inst.Build()
	require.NoError(t, err)
	assert.Same(t, inst, net.Instance)
	assert.Equal(t, 4, net.Graph.NodeCount())
	require.Len(t, net.EdgeIDs, 4)

	for i, id := range net.EdgeIDs {
		e := net.Graph.Edge(id)
		assert.Equal(t, inst.Edges[i].From, e.From)
		assert.Equal(t, inst.Edges[i].To, e.To)
		assert.Equal(t, int64(inst.Edges[i].Capacity), e.Capacity)
	}

	result, err := algorithms.MinCostFlow(context.Background(), net.Graph, inst.Source, inst.Sink, algorithms.AtMost(3), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), result.Cost)
	assert.Equal(t, []int64{2, 1, 2, 1}, net.EdgeFlows())
}

func TestNetwork_GraphHash(t *testing.T) {
	inst := decode(t, diamondYAML)
	net, err := inst.Build()
	require.NoError(t, err)

	assert.Equal(t, 4, net.NodeCount())
	assert.Equal(t, 4, net.EdgeCount())
	from, to, capacity, cost := net.EdgeAt(2)
	assert.Equal(t, []int64{1, 3, 2, 1}, []int64{int64(from), int64(to), capacity, cost})

	before := cache.GraphHash(net)
	require.NotEmpty(t, before)

	_, err = algorithms.MaxFlow(context.Background(), net.Graph, inst.Source, inst.Sink, "", nil)
	require.NoError(t, err)
	assert.Equal(t, before, cache.GraphHash(net), "routed flow does not change the hash")

	rebuilt, err := decode(t, diamondYAML).Build()
	require.NoError(t, err)
	assert.Equal(t, before, cache.GraphHash(rebuilt))

	changed := decode(t, diamondYAML)
	changed.Edges[3].Capacity = 3
	other, err := changed.Build()
	require.NoError(t, err)
	assert.NotEqual(t, before, cache.GraphHash(other))
}

func TestBuild_Rejects(t *testing.T) {
	_, err := (&Instance{Nodes: 0}).Build()
	assert.True(t, apperror.Is(err, apperror.CodeInvalidNodeCount))

	circ := &Instance{Nodes: 2, Demands: map[int]int64{0: -1, 1: 1}}
	_, err = circ.Build()
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInstance))
}

func TestBuild_ErrorCode(t *testing.T) {
	tests := []struct {
		name string
		inst Instance
		want apperror.ErrorCode
	}{
		{"no nodes", Instance{Nodes: 0}, apperror.CodeInvalidNodeCount},
		{"sink out of range", Instance{Nodes: 2, Sink: 5}, apperror.CodeInvalidSink},
		{"source out of range", Instance{Nodes: 2, Source: -1, Sink: 1}, apperror.CodeInvalidSource},
		{"negative capacity", Instance{Nodes: 2, Sink: 1, Edges: []EdgeSpec{{From: 0, To: 1, Capacity: -3}}}, apperror.CodeNegativeCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.inst.Build()
			require.Error(t, err)
			assert.Equal(t, tt.want, apperror.Code(err))
			assert.True(t, apperror.Is(err, tt.want))
			assert.Equal(t, apperror.ExitUsage, apperror.ExitCode(err))
		})
	}
}

func TestBuildCirculation(t *testing.T) {
	inst := decode(t, `
nodes: 3
demands: {0: -5, 2: 5}
edges:
  - {from: 0, to: 1, capacity: 3, cost: 1}
  - {from: 0, to: 2, capacity: 3, cost: 3}
  - {from: 1, to: 2, lower: 1, capacity: 3, cost: 1}
`)
	require.True(t, inst.IsCirculation())

	c, err := inst.BuildCirculation()
	require.NoError(t, err)
	assert.Equal(t, 3, c.EdgeCount())
	assert.Equal(t, int64(-5), c.Demand(0))

	result, err := c.Solve(context.Background(), algorithms.AlgorithmSuccessiveShortestPath, nil)
	require.NoError(t, err)
	assert.True(t, result.Feasible)
	assert.Equal(t, int64(12), result.Cost)

	flows, err := c.Flows()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 3}, flows)
}

func TestInfiniteCapacityBuild(t *testing.T) {
	inst := decode(t, "nodes: 3\nsource: 0\nsink: 2\nedges:\n  - {from: 0, to: 1, capacity: inf}\n  - {from: 1, to: 2, capacity: 9}\n")

	net, err := inst.Build()
	require.NoError(t, err)
	assert.Equal(t, graph.InfiniteCapacity, net.Graph.Edge(net.EdgeIDs[0]).Capacity)

	result, err := algorithms.MaxFlow(context.Background(), net.Graph, 0, 2, algorithms.AlgorithmDinic, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), result.Flow)
}
