package cache

import (
	"strings"
	"testing"
)

// edgeList is a Network over [from, to, capacity, cost] rows.
type edgeList struct {
	nodes int
	edges [][4]int64
}

func (l edgeList) NodeCount() int { return l.nodes }
func (l edgeList) EdgeCount() int { return len(l.edges) }

func (l edgeList) EdgeAt(i int) (int, int, int64, int64) {
	e := l.edges[i]
	return int(e[0]), int(e[1]), e[2], e[3]
}

func TestGraphHash(t *testing.T) {
	base := [][4]int64{{0, 1, 3, 1}, {1, 2, 2, 4}}

	tests := []struct {
		name  string
		nodes int
		edges [][4]int64
		same  bool
	}{
		{"identical", 3, base, true},
		{"different capacity", 3, [][4]int64{{0, 1, 4, 1}, {1, 2, 2, 4}}, false},
		{"different cost", 3, [][4]int64{{0, 1, 3, 2}, {1, 2, 2, 4}}, false},
		{"different node count", 4, base, false},
		{"edge order", 3, [][4]int64{{1, 2, 2, 4}, {0, 1, 3, 1}}, false},
		{"extra edge", 3, append(append([][4]int64{}, base...), [4]int64{0, 2, 1, 0}), false},
	}

	want := GraphHash(edgeList{nodes: 3, edges: base})
	if len(want) != 32 {
		t.Fatalf("expected 32 hex characters, got %q", want)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GraphHash(edgeList{nodes: tt.nodes, edges: tt.edges})
			if (got == want) != tt.same {
				t.Errorf("GraphHash equal = %v, want %v", got == want, tt.same)
			}
		})
	}
}

func TestGraphHash_Nil(t *testing.T) {
	if GraphHash(nil) != "" {
		t.Error("nil network should hash to empty string")
	}
}

func TestSolveKey_String(t *testing.T) {
	target := uint64(7)

	tests := []struct {
		name string
		key  SolveKey
		want string
	}{
		{
			name: "max flow",
			key:  SolveKey{GraphHash: "abc", Source: 0, Sink: 3, Mode: "max_flow", Algorithm: "dinic"},
			want: "solve:max_flow:dinic:abc:0-3:max",
		},
		{
			name: "bounded target",
			key:  SolveKey{GraphHash: "abc", Sink: 3, Mode: "min_cost", Algorithm: "successive_shortest_path", Target: &target},
			want: "solve:min_cost:successive_shortest_path:abc:0-3:7",
		},
		{
			name: "exact target",
			key:  SolveKey{GraphHash: "abc", Sink: 3, Mode: "min_cost", Algorithm: "cycle_canceling", Target: &target, Exact: true},
			want: "solve:min_cost:cycle_canceling:abc:0-3:7!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if !strings.Contains(got, ":"+tt.key.GraphHash+":") {
				t.Error("graph hash must be its own segment")
			}
		})
	}
}
