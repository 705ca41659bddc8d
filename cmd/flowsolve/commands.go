package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flowengine/internal/algorithms"
	"flowengine/internal/instance"
	"flowengine/internal/report"
	"flowengine/internal/service"
	"flowengine/pkg/apperror"
	"flowengine/pkg/logger"
	"flowengine/pkg/telemetry"
)

// runFunc performs one operation on a loaded instance.
type runFunc func(ctx context.Context, inst *instance.Instance) (*service.Result, error)

// =====================================================
// solve, maxflow
// =====================================================

func newSolveCmd(c *cli) *cobra.Command {
	var (
		mode   string
		algo   string
		target uint64
		exact  bool
	)

	cmd := &cobra.Command{
		Use:   "solve <instance>",
		Short: "Solve a max-flow or min-cost flow instance",
		Long: `Solve an instance. Without --mode the mode is min_cost when a target is
given (on the command line or in the instance) or the algorithm is a min-cost
algorithm, and max_flow otherwise.

Use "-" to read the instance from stdin.`,
		Example: `  flowsolve solve network.yaml
  flowsolve solve network.yaml --mode min_cost --target 10 --exact
  flowsolve solve network.yaml -a push_relabel -f json -o result.json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(mode, algo)
			if err != nil {
				return err
			}

			switch {
			case cmd.Flags().Changed("target"):
				if exact {
					req.Target = algorithms.Exactly(target)
				} else {
					req.Target = algorithms.AtMost(target)
				}
			case exact:
				return apperror.New(apperror.CodeInvalidArgument, "--exact requires --target").WithField("exact")
			}

			return c.runOne(cmd, args[0], func(ctx context.Context, inst *instance.Instance) (*service.Result, error) {
				return c.svc.Solve(ctx, inst, req)
			})
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "max_flow or min_cost (default: inferred)")
	cmd.Flags().StringVarP(&algo, "algorithm", "a", "", "algorithm (default: solver.default_max_flow / solver.default_min_cost)")
	cmd.Flags().Uint64VarP(&target, "target", "t", 0, "amount of flow to route at minimum cost")
	cmd.Flags().BoolVar(&exact, "exact", false, "fail as infeasible when the target cannot be met")

	return cmd
}

func newMaxFlowCmd(c *cli) *cobra.Command {
	var algo string

	cmd := &cobra.Command{
		Use:   "maxflow <instance>",
		Short: "Compute the maximum flow, ignoring costs and targets",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(string(service.ModeMaxFlow), algo)
			if err != nil {
				return err
			}
			return c.runOne(cmd, args[0], func(ctx context.Context, inst *instance.Instance) (*service.Result, error) {
				return c.svc.Solve(ctx, inst, req)
			})
		},
	}

	cmd.Flags().StringVarP(&algo, "algorithm", "a", "", "max-flow algorithm (default: solver.default_max_flow)")
	return cmd
}

// =====================================================
// mincut, globalcut
// =====================================================

func newMinCutCmd(c *cli) *cobra.Command {
	var algo string

	cmd := &cobra.Command{
		Use:   "mincut <instance>",
		Short: "Compute a minimum source-sink cut",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseAlgorithm(algo)
			if err != nil {
				return err
			}
			return c.runOne(cmd, args[0], func(ctx context.Context, inst *instance.Instance) (*service.Result, error) {
				return c.svc.MinCut(ctx, inst, a)
			})
		},
	}

	cmd.Flags().StringVarP(&algo, "algorithm", "a", "", "max-flow algorithm (default: solver.default_max_flow)")
	return cmd
}

func newGlobalCutCmd(c *cli) *cobra.Command {
	var algo string

	cmd := &cobra.Command{
		Use:   "globalcut <instance>",
		Short: "Compute the minimum cut over all node pairs",
		Long: `Compute the smallest set of edges whose removal disconnects some node
from another. Source and sink in the instance are ignored.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseAlgorithm(algo)
			if err != nil {
				return err
			}
			return c.runOne(cmd, args[0], func(ctx context.Context, inst *instance.Instance) (*service.Result, error) {
				return c.svc.GlobalMinCut(ctx, inst, a)
			})
		},
	}

	cmd.Flags().StringVarP(&algo, "algorithm", "a", "", "max-flow algorithm (default: solver.default_max_flow)")
	return cmd
}

// =====================================================
// circulate
// =====================================================

func newCirculateCmd(c *cli) *cobra.Command {
	var algo string

	cmd := &cobra.Command{
		Use:   "circulate <instance>",
		Short: "Find a flow meeting node demands and edge lower bounds",
		Long: `Find a circulation: every edge carries between its lower bound and its
capacity, and at every node inflow minus outflow equals the node's demand.
With edge costs the cheapest circulation is returned.

Exits with code 3 when no circulation exists.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseAlgorithm(algo)
			if err != nil {
				return err
			}
			return c.runOne(cmd, args[0], func(ctx context.Context, inst *instance.Instance) (*service.Result, error) {
				return c.svc.Circulate(ctx, inst, a)
			})
		},
	}

	cmd.Flags().StringVarP(&algo, "algorithm", "a", "", "algorithm (default: min-cost default when costs are set)")
	return cmd
}

// =====================================================
// batch
// =====================================================

func newBatchCmd(c *cli) *cobra.Command {
	var (
		mode string
		algo string
	)

	cmd := &cobra.Command{
		Use:   "batch <instance>...",
		Short: "Solve many instances concurrently and write one report",
		Long: `Solve every instance file with at most solver.max_concurrency running at
once. Circulation instances are circulated; the others are solved with the
given mode and algorithm. A file that fails to load is reported as an error
row and does not stop the batch.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid arguments")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(mode, algo)
			if err != nil {
				return err
			}
			return c.runBatch(cmd, args, req)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "max_flow or min_cost (default: inferred per instance)")
	cmd.Flags().StringVarP(&algo, "algorithm", "a", "", "algorithm for every instance")
	return cmd
}

func (c *cli) runBatch(cmd *cobra.Command, paths []string, req service.Request) error {
	ctx := cmd.Context()
	log := logger.WithComponent("cli")

	runs := make([]report.Run, len(paths))
	var (
		loaded []*instance.Instance
		slots  []int
	)
	for i, path := range paths {
		inst, err := c.loadInstance(cmd, path)
		if err != nil {
			runs[i] = report.Run{Instance: &instance.Instance{Name: path}, Err: err}
			continue
		}
		runs[i] = report.Run{Instance: inst}
		loaded = append(loaded, inst)
		slots = append(slots, i)
	}

	items := c.svc.SolveBatch(ctx, loaded, req)
	for j, item := range items {
		runs[slots[j]].Result = item.Result
		runs[slots[j]].Err = item.Err
	}

	if err := c.writeReport(cmd, runs); err != nil {
		return err
	}

	var failed, infeasible int
	for _, run := range runs {
		switch {
		case run.Err != nil:
			failed++
		case run.Result.Infeasible():
			infeasible++
		}
	}
	log.Info("batch complete", "instances", len(runs), "failed", failed, "infeasible", infeasible)

	if err := ctx.Err(); err != nil {
		return apperror.Wrap(err, apperror.CodeCanceled, "batch interrupted")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d instances failed", failed, len(runs))
	}
	if infeasible > 0 {
		c.exitCode = apperror.ExitInfeasible
	}
	return nil
}

// =====================================================
// algorithms
// =====================================================

func newAlgorithmsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the available algorithms",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ALGORITHM\tMIN COST\tPATHS\tTIME\tBEST FOR")
			for _, info := range algorithms.GetAllAlgorithms() {
				name := string(info.Algorithm)
				switch name {
				case c.cfg.Solver.DefaultMaxFlow, c.cfg.Solver.DefaultMinCost:
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					name,
					yesNo(info.SupportsMinCost),
					yesNo(info.ReturnsPaths),
					info.TimeComplexity,
					strings.Join(info.BestFor, ", "),
				)
			}
			fmt.Fprintln(w, "\n* configured default")
			return w.Flush()
		},
	}
}

// =====================================================
// Helpers
// =====================================================

// runOne loads an instance, runs op and reports the result. A partial result
// of an interrupted run is still reported before the error is returned.
func (c *cli) runOne(cmd *cobra.Command, path string, op runFunc) error {
	inst, err := c.loadInstance(cmd, path)
	if err != nil {
		return err
	}

	result, err := op(cmd.Context(), inst)
	if result == nil {
		return err
	}

	if rerr := c.writeReport(cmd, []report.Run{{Instance: inst, Result: result}}); rerr != nil {
		if err != nil {
			return err
		}
		return rerr
	}

	if err == nil && result.Infeasible() {
		c.exitCode = apperror.ExitInfeasible
	}
	return err
}

// loadInstance reads path, or stdin for "-".
func (c *cli) loadInstance(cmd *cobra.Command, path string) (inst *instance.Instance, err error) {
	_, span := telemetry.StartSpan(cmd.Context(), "flowsolve.load")
	defer func() { telemetry.EndSpan(span, err) }()

	if path == "-" {
		inst, err = instance.Decode(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		if inst.Name == "" {
			inst.Name = "stdin"
		}
		return inst, nil
	}
	return instance.Load(path)
}

func buildRequest(mode, algo string) (service.Request, error) {
	m, err := service.ParseMode(mode)
	if err != nil {
		return service.Request{}, err
	}
	a, err := parseAlgorithm(algo)
	if err != nil {
		return service.Request{}, err
	}
	return service.Request{Mode: m, Algorithm: a}, nil
}

// parseAlgorithm accepts an empty name as "use the configured default".
func parseAlgorithm(name string) (algorithms.Algorithm, error) {
	if name == "" {
		return "", nil
	}
	return algorithms.ParseAlgorithm(name)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid arguments")
		}
		return nil
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
