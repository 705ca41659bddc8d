package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowengine/internal/report"
	"flowengine/internal/service"
	"flowengine/pkg/apperror"
)

const diamondYAML = `
name: diamond
nodes: 4
source: 0
sink: 3
edges:
  - {from: 0, to: 1, capacity: 2, cost: 1}
  - {from: 0, to: 2, capacity: 2, cost: 4}
  - {from: 1, to: 3, capacity: 2, cost: 1}
  - {from: 2, to: 3, capacity: 2, cost: 4}
`

const circulationYAML = `
name: lower-bounds
nodes: 3
demands: {0: -5, 2: 5}
edges:
  - {from: 0, to: 1, capacity: 3, cost: 1}
  - {from: 0, to: 2, capacity: 3, cost: 3}
  - {from: 1, to: 2, lower: 1, capacity: 3, cost: 1}
`

const shortCirculationYAML = `
name: short
nodes: 2
demands: {0: -5, 1: 5}
edges:
  - {from: 0, to: 1, capacity: 3}
`

const testConfigYAML = `
log:
  level: error
  output: stderr
solver:
  default_max_flow: dinic
  default_min_cost: successive_shortest_path
  max_concurrency: 2
  verify: true
`

type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{dir: t.TempDir()}
	env.config = env.write(t, "config.yaml", testConfigYAML)
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// exec runs flowsolve with the test config and returns exit code, stdout and stderr.
func (e *testEnv) exec(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", e.config}, args...)
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeReport(t *testing.T, out string) report.JSONReport {
	t.Helper()
	var doc report.JSONReport
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestSolve(t *testing.T) {
	env := newTestEnv(t)
	diamond := env.write(t, "diamond.yaml", diamondYAML)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantFlow uint64
		wantCost int64
		status   string
	}{
		{
			name:     "max flow by default",
			args:     []string{"solve", diamond},
			wantCode: 0, wantFlow: 4, wantCost: 20, status: "optimal",
		},
		{
			name:     "min cost with target",
			args:     []string{"solve", diamond, "--target", "3"},
			wantCode: 0, wantFlow: 3, wantCost: 12, status: "optimal",
		},
		{
			name:     "target above max flow",
			args:     []string{"solve", diamond, "-t", "10"},
			wantCode: 0, wantFlow: 4, wantCost: 20, status: "below_target",
		},
		{
			name:     "exact target above max flow",
			args:     []string{"solve", diamond, "-t", "5", "--exact"},
			wantCode: apperror.ExitInfeasible, wantFlow: 4, wantCost: 20, status: "infeasible",
		},
		{
			name:     "maxflow command",
			args:     []string{"maxflow", diamond, "-a", "push_relabel"},
			wantCode: 0, wantFlow: 4, wantCost: 20, status: "optimal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, stderr := env.exec(t, "", append(tt.args, "-f", "json")...)
			require.Equal(t, tt.wantCode, code, stderr)

			doc := decodeReport(t, out)
			require.Len(t, doc.Runs, 1)
			assert.Equal(t, "diamond", doc.Runs[0].Instance)
			assert.Equal(t, tt.wantFlow, doc.Runs[0].Flow)
			assert.Equal(t, tt.wantCost, doc.Runs[0].Cost)
			assert.Equal(t, tt.status, doc.Runs[0].Status)
		})
	}
}

func TestSolve_Stdin(t *testing.T) {
	env := newTestEnv(t)

	code, out, stderr := env.exec(t, diamondYAML, "solve", "-", "-f", "markdown")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "# Flow Report: diamond")
	assert.Contains(t, out, "- **Flow:** 4")
}

func TestSolve_UsageErrors(t *testing.T) {
	env := newTestEnv(t)
	diamond := env.write(t, "diamond.yaml", diamondYAML)
	broken := env.write(t, "broken.yaml", "nodes: 2\nsource: 0\nsink: 5\nedges: []\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing argument", []string{"solve"}},
		{"unknown flag", []string{"solve", diamond, "--bogus"}},
		{"exact without target", []string{"solve", diamond, "--exact"}},
		{"unknown algorithm", []string{"solve", diamond, "-a", "simplex"}},
		{"unknown mode", []string{"solve", diamond, "-m", "fastest"}},
		{"unknown format", []string{"solve", diamond, "-f", "html"}},
		{"unsupported file", []string{"solve", filepath.Join(env.dir, "net.txt")}},
		{"invalid instance", []string{"solve", broken}},
		{"binary format on stdout", []string{"solve", diamond, "-f", "pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := env.exec(t, "", tt.args...)
			assert.Equal(t, apperror.ExitUsage, code, stderr)
			assert.Contains(t, stderr, "error:")
		})
	}
}

func TestSolve_MissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "algorithms"},
		strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, apperror.ExitUsage, code)
	assert.Contains(t, stderr.String(), "failed to load config")
}

func TestMinCut(t *testing.T) {
	env := newTestEnv(t)
	diamond := env.write(t, "diamond.yaml", diamondYAML)

	code, out, stderr := env.exec(t, "", "mincut", diamond, "-f", "json")
	require.Equal(t, 0, code, stderr)

	doc := decodeReport(t, out)
	require.NotNil(t, doc.Runs[0].Cut)
	assert.Equal(t, uint64(4), doc.Runs[0].Cut.Capacity)
	assert.Equal(t, "mincut", doc.Runs[0].Operation)
}

func TestGlobalCut(t *testing.T) {
	env := newTestEnv(t)
	ring := env.write(t, "ring.yaml", `
name: ring
nodes: 3
source: 0
sink: 1
edges:
  - {from: 0, to: 1, capacity: 3}
  - {from: 1, to: 2, capacity: 2}
  - {from: 2, to: 0, capacity: 4}
`)

	code, out, stderr := env.exec(t, "", "globalcut", ring, "-f", "json")
	require.Equal(t, 0, code, stderr)

	doc := decodeReport(t, out)
	assert.Equal(t, uint64(2), doc.Runs[0].Flow)
	require.NotNil(t, doc.Runs[0].Cut)
	assert.Equal(t, []int{1}, doc.Runs[0].Cut.Edges)
}

func TestCirculate(t *testing.T) {
	env := newTestEnv(t)
	feasible := env.write(t, "circ.yaml", circulationYAML)
	short := env.write(t, "short.yaml", shortCirculationYAML)

	code, out, stderr := env.exec(t, "", "circulate", feasible, "-f", "json")
	require.Equal(t, 0, code, stderr)
	doc := decodeReport(t, out)
	assert.Equal(t, int64(12), doc.Runs[0].Cost)
	require.NotNil(t, doc.Runs[0].Feasible)
	assert.True(t, *doc.Runs[0].Feasible)

	code, out, stderr = env.exec(t, "", "circulate", short, "-f", "json")
	assert.Equal(t, apperror.ExitInfeasible, code, stderr)
	doc = decodeReport(t, out)
	require.NotNil(t, doc.Runs[0].Feasible)
	assert.False(t, *doc.Runs[0].Feasible)
	assert.Empty(t, doc.Runs[0].Edges)
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	diamond := env.write(t, "diamond.yaml", diamondYAML)
	circ := env.write(t, "circ.yaml", circulationYAML)
	missing := filepath.Join(env.dir, "missing.yaml")

	code, out, stderr := env.exec(t, "", "batch", diamond, circ, "-f", "json")
	require.Equal(t, 0, code, stderr)
	doc := decodeReport(t, out)
	require.Len(t, doc.Runs, 2)
	assert.Equal(t, "diamond", doc.Runs[0].Instance)
	assert.Equal(t, "lower-bounds", doc.Runs[1].Instance)
	assert.Equal(t, "circulation", doc.Runs[1].Operation)

	code, out, _ = env.exec(t, "", "batch", diamond, missing, "-f", "json")
	assert.Equal(t, apperror.ExitFailure, code)
	doc = decodeReport(t, out)
	require.Len(t, doc.Runs, 2)
	assert.Equal(t, "error", doc.Runs[1].Status)
	assert.Equal(t, missing, doc.Runs[1].Instance)
}

func TestReportOutputFile(t *testing.T) {
	env := newTestEnv(t)
	diamond := env.write(t, "diamond.yaml", diamondYAML)

	tests := []struct {
		format string
		prefix string
	}{
		{"xlsx", "PK"},
		{"pdf", "%PDF-"},
		{"csv", "# Flow Report: diamond"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(env.dir, "reports", "diamond."+tt.format)
			code, out, stderr := env.exec(t, "", "solve", diamond, "-f", tt.format, "-o", path)
			require.Equal(t, 0, code, stderr)
			assert.Empty(t, out)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte(tt.prefix)), "unexpected report header")
		})
	}
}

func TestReportOutputDir(t *testing.T) {
	env := newTestEnv(t)
	diamond := env.write(t, "diamond.yaml", diamondYAML)
	outDir := filepath.Join(env.dir, "out")
	env.config = env.write(t, "config-dir.yaml", testConfigYAML+"report:\n  format: json\n  output_dir: "+outDir+"\n")

	code, _, stderr := env.exec(t, "", "mincut", diamond)
	require.Equal(t, 0, code, stderr)

	_, err := os.Stat(filepath.Join(outDir, "diamond-mincut.json"))
	assert.NoError(t, err)
}

func TestAlgorithms(t *testing.T) {
	env := newTestEnv(t)

	code, out, stderr := env.exec(t, "", "algorithms")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "dinic *")
	assert.Contains(t, out, "successive_shortest_path *")
	assert.Contains(t, out, "push_relabel_highest")
	assert.Contains(t, out, "cycle_canceling")
}

func TestReportFileName(t *testing.T) {
	single := []report.Run{{Result: &service.Result{Instance: "east/west net", Operation: "solve"}}}
	assert.Equal(t, "east_west_net-solve", reportFileName(single))

	batch := []report.Run{{}, {}}
	assert.True(t, strings.HasPrefix(reportFileName(batch), "batch-"))
}
