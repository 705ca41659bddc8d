// Package instance reads flow network descriptions from YAML or JSON files
// and builds solver inputs from them.
//
// A description lists nodes by count (numbered from 0), the terminals and the
// edges in order. Edge order is significant: per-edge results are reported in
// the same order.
//
//	name: diamond
//	nodes: 4
//	source: 0
//	sink: 3
//	edges:
//	  - {from: 0, to: 1, capacity: 2, cost: 1}
//	  - {from: 0, to: 2, capacity: inf}
//
// Instances with node demands or lower bounds describe a circulation; source
// and sink are then ignored.
package instance

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"flowengine/internal/algorithms"
	"flowengine/internal/graph"
	"flowengine/pkg/apperror"

	"gopkg.in/yaml.v3"
)

// Capacity is an edge capacity. In files it is an integer or one of "inf",
// "infinite", "unbounded".
type Capacity int64

// Infinite is the capacity of an unbounded edge.
const Infinite = Capacity(graph.InfiniteCapacity)

// UnmarshalYAML accepts integers and the infinity keywords.
func (c *Capacity) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: capacity must be a scalar", value.Line)
	}
	switch strings.ToLower(value.Value) {
	case "inf", "infinite", "unbounded", ".inf":
		*c = Infinite
		return nil
	}
	v, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("line %d: capacity %q is not an integer", value.Line, value.Value)
	}
	*c = Capacity(v)
	return nil
}

// MarshalYAML writes Infinite as "inf".
func (c Capacity) MarshalYAML() (any, error) {
	if c == Infinite {
		return "inf", nil
	}
	return int64(c), nil
}

// EdgeSpec is one edge of an instance.
type EdgeSpec struct {
	From     int      `yaml:"from"`
	To       int      `yaml:"to"`
	Lower    int64    `yaml:"lower,omitempty"`
	Capacity Capacity `yaml:"capacity"`
	Cost     int64    `yaml:"cost,omitempty"`
	Label    string   `yaml:"label,omitempty"`
}

// Instance is a decoded network description.
type Instance struct {
	Name        string        `yaml:"name,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Nodes       int           `yaml:"nodes"`
	Source      int           `yaml:"source"`
	Sink        int           `yaml:"sink"`
	Edges       []EdgeSpec    `yaml:"edges"`
	Demands     map[int]int64 `yaml:"demands,omitempty"`
	Target      *uint64       `yaml:"target,omitempty"`
	Exact       bool          `yaml:"exact,omitempty"`
}

// Network is an instance built into a residual graph.
type Network struct {
	Instance *Instance
	Graph    *graph.Graph
	// EdgeIDs[i] is the graph edge of Instance.Edges[i].
	EdgeIDs []graph.EdgeID
}

// Load reads an instance from a .yaml, .yml or .json file. The file name
// (without extension) becomes the instance name when the file sets none.
func Load(path string) (*Instance, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, apperror.Newf(apperror.CodeUnsupportedFile, "unsupported instance file %s: want .yaml, .yml or .json", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperror.Wrap(err, apperror.CodeNotFound, "instance file not found").WithDetails("path", path)
		}
		return nil, apperror.Wrap(err, apperror.CodeInvalidInstance, "cannot open instance file").WithDetails("path", path)
	}
	defer f.Close()

	inst, err := Decode(f)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			appErr.WithDetails("path", path)
		}
		return nil, err
	}

	if inst.Name == "" {
		base := filepath.Base(path)
		inst.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return inst, nil
}

// Decode reads one instance document. Unknown fields are rejected. JSON input
// is accepted as YAML.
func Decode(r io.Reader) (*Instance, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var inst Instance
	if err := dec.Decode(&inst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperror.New(apperror.CodeInvalidInstance, "instance document is empty")
		}
		return nil, apperror.Wrap(err, apperror.CodeInvalidInstance, "cannot decode instance")
	}
	return &inst, nil
}

// Encode writes inst as YAML.
func (inst *Instance) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(inst); err != nil {
		return err
	}
	return enc.Close()
}

// IsCirculation reports whether the instance has node demands or lower bounds.
func (inst *Instance) IsCirculation() bool {
	if len(inst.Demands) > 0 {
		return true
	}
	for _, e := range inst.Edges {
		if e.Lower > 0 {
			return true
		}
	}
	return false
}

// Validate checks the whole instance and returns every problem found as
// *apperror.ValidationErrors, or nil. Warnings do not fail validation.
func (inst *Instance) Validate() error {
	return inst.Check().Err()
}

// Warnings returns the non-fatal findings of Check.
func (inst *Instance) Warnings() []string {
	return inst.Check().WarningMessages()
}

// Check collects every error and warning in the instance.
func (inst *Instance) Check() *apperror.ValidationErrors {
	v := apperror.NewValidationErrors()

	if inst.Nodes <= 0 {
		v.AddErrorWithField(apperror.CodeInvalidNodeCount,
			fmt.Sprintf("node count must be positive, got %d", inst.Nodes), "nodes")
		return v
	}

	inRange := func(u int) bool { return u >= 0 && u < inst.Nodes }
	circulation := inst.IsCirculation()

	if !circulation {
		if !inRange(inst.Source) {
			v.AddErrorWithField(apperror.CodeInvalidSource,
				fmt.Sprintf("source %d out of range [0, %d)", inst.Source, inst.Nodes), "source")
		}
		if !inRange(inst.Sink) {
			v.AddErrorWithField(apperror.CodeInvalidSink,
				fmt.Sprintf("sink %d out of range [0, %d)", inst.Sink, inst.Nodes), "sink")
		}
		if inst.Source == inst.Sink && inRange(inst.Source) {
			v.AddWarning(apperror.CodeInvalidSink, "source equals sink; the flow is zero")
		}
	} else if inst.Target != nil {
		v.AddErrorWithField(apperror.CodeInvalidTarget,
			"a flow target does not apply to a circulation", "target")
	}

	if inst.Exact && inst.Target == nil {
		v.AddErrorWithField(apperror.CodeInvalidTarget, "exact is set without a target", "exact")
	}

	for i, e := range inst.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		if !inRange(e.From) || !inRange(e.To) {
			v.AddErrorWithField(apperror.CodeNodeOutOfRange,
				fmt.Sprintf("edge %d->%d has an endpoint outside [0, %d)", e.From, e.To, inst.Nodes), field)
			continue
		}
		if e.Capacity < 0 {
			v.AddErrorWithField(apperror.CodeNegativeCapacity,
				fmt.Sprintf("edge %d->%d has negative capacity %d", e.From, e.To, e.Capacity), field)
			continue
		}
		if e.Lower < 0 || e.Lower > int64(e.Capacity) {
			v.AddErrorWithField(apperror.CodeInvalidBounds,
				fmt.Sprintf("edge %d->%d needs 0 <= lower <= capacity, got [%d, %d]", e.From, e.To, e.Lower, e.Capacity), field)
		}
		if e.From == e.To {
			v.AddWarning(apperror.CodeInvalidEdge, fmt.Sprintf("%s is a self-loop on node %d and never carries flow", field, e.From))
		}
	}

	for node := range inst.Demands {
		if !inRange(node) {
			v.AddErrorWithField(apperror.CodeNodeOutOfRange,
				fmt.Sprintf("demand on node %d outside [0, %d)", node, inst.Nodes), fmt.Sprintf("demands[%d]", node))
		}
	}

	return v
}

// FlowTarget converts Target and Exact into a solver target. A nil result
// requests the maximum flow.
func (inst *Instance) FlowTarget() *algorithms.FlowTarget {
	if inst.Target == nil {
		return nil
	}
	if inst.Exact {
		return algorithms.Exactly(*inst.Target)
	}
	return algorithms.AtMost(*inst.Target)
}

// Build validates the instance and creates its residual graph. Lower bounds
// and demands are not representable here; use BuildCirculation.
func (inst *Instance) Build() (*Network, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if inst.IsCirculation() {
		return nil, apperror.New(apperror.CodeInvalidInstance,
			"instance has demands or lower bounds; solve it as a circulation")
	}

	g := graph.New(inst.Nodes)
	ids := make([]graph.EdgeID, len(inst.Edges))
	for i, e := range inst.Edges {
		id, err := g.AddEdge(e.From, e.To, int64(e.Capacity), e.Cost)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.Code(err), fmt.Sprintf("edges[%d]", i))
		}
		ids[i] = id
	}

	return &Network{Instance: inst, Graph: g, EdgeIDs: ids}, nil
}

// BuildCirculation validates the instance and creates a circulation problem
// whose edge indices match Instance.Edges.
func (inst *Instance) BuildCirculation() (*algorithms.Circulation, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	c, err := algorithms.NewCirculation(inst.Nodes)
	if err != nil {
		return nil, err
	}
	for i, e := range inst.Edges {
		if _, err := c.AddEdge(e.From, e.To, e.Lower, int64(e.Capacity), e.Cost); err != nil {
			return nil, apperror.Wrap(err, apperror.Code(err), fmt.Sprintf("edges[%d]", i))
		}
	}
	for node, d := range inst.Demands {
		if err := c.SetDemand(node, d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// EdgeFlows returns the flow on each instance edge, in instance order.
func (n *Network) EdgeFlows() []int64 {
	flows := make([]int64, len(n.EdgeIDs))
	for i, id := range n.EdgeIDs {
		flows[i] = n.Graph.Edge(id).Flow()
	}
	return flows
}

// NodeCount returns the number of nodes of the network.
func (n *Network) NodeCount() int {
	return n.Graph.NodeCount()
}

// EdgeCount returns the number of instance edges.
func (n *Network) EdgeCount() int {
	return len(n.EdgeIDs)
}

// EdgeAt returns the structure of instance edge i as built into the graph.
func (n *Network) EdgeAt(i int) (from, to int, capacity, cost int64) {
	e := n.Graph.Edge(n.EdgeIDs[i])
	return e.From, e.To, e.Capacity, e.Cost
}
