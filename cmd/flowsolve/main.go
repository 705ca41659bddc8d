// Package main is the flowsolve command line tool.
//
// flowsolve reads network instances from YAML or JSON files and computes
// maximum flows, minimum cost flows, minimum cuts and circulations. Results
// are rendered as CSV, Markdown, JSON, Excel or PDF reports.
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command line flags (--log-level, --format, --output, --max-rows)
//  2. Environment variables (prefix: FLOWENGINE_)
//  3. Config file (--config, FLOWENGINE_CONFIG, config.yaml, config/config.yaml,
//     /etc/flowengine/config.yaml)
//  4. Default values
//
// Key configuration options (environment variable format):
//
//	FLOWENGINE_LOG_LEVEL               - debug, info, warn, error (default: info)
//	FLOWENGINE_LOG_OUTPUT              - stdout, stderr, file (default: stderr)
//	FLOWENGINE_SOLVER_DEFAULT_MAX_FLOW - default max-flow algorithm (default: dinic)
//	FLOWENGINE_SOLVER_DEFAULT_MIN_COST - default min-cost algorithm (default: successive_shortest_path)
//	FLOWENGINE_SOLVER_TIMEOUT          - per-solve timeout, 0 disables (default: 0)
//	FLOWENGINE_SOLVER_MAX_CONCURRENCY  - batch parallelism (default: 4)
//	FLOWENGINE_SOLVER_VERIFY           - check every result (default: true)
//	FLOWENGINE_CACHE_ENABLED           - cache results (default: false)
//	FLOWENGINE_CACHE_DRIVER            - memory, redis (default: memory)
//	FLOWENGINE_METRICS_ENABLED         - serve Prometheus metrics while running (default: false)
//	FLOWENGINE_TRACING_ENABLED         - export OpenTelemetry spans (default: false)
//	FLOWENGINE_REPORT_FORMAT           - csv, markdown, json, xlsx, pdf (default: markdown)
//	FLOWENGINE_REPORT_OUTPUT_DIR       - write reports here instead of stdout
//
// # Exit Codes
//
//	0   - success
//	1   - runtime failure (verification, cache, I/O)
//	2   - invalid instance, flags or configuration
//	3   - infeasible (exact target or circulation cannot be met)
//	130 - interrupted
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"flowengine/pkg/apperror"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// =========================================================================
	// Signal Handling
	// =========================================================================
	//
	// SIGINT and SIGTERM cancel the command context. Solvers observe the
	// context between augmentations and return a partial result with a
	// CANCELED error, which maps to exit code 130.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI(stdout, stderr)
	defer c.close()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	// =========================================================================
	// Execution
	// =========================================================================
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return apperror.ExitCanceled
		}
		return apperror.ExitCode(err)
	}
	return c.exitCode
}
