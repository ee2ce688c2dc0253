package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/goap/application"
	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/process"
)

type runOptions struct {
	configPath  string
	goal        string
	anyGoal     bool
	processID   string
	maxSteps    int
	timeout     time.Duration
	vars        map[string]string
	metricsAddr string
	jsonOutput  bool
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [goal]",
		Short: "Run a process toward a goal",
		Long: `Run a process over the declared domain until it completes, gets stuck,
fails or is terminated early by a budget ceiling or policy.

Examples:
  # Run the default goal
  goap run -c goap.yaml

  # Run whichever declared goal has the best net value
  goap run -c goap.yaml --any

  # Run a named goal with a timeout and an extra binding
  goap run -c goap.yaml --timeout 30s --var ticket=T-1 release

  # Expose Prometheus metrics while the process runs
  goap run -c goap.yaml --metrics-addr :9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.goal = args[0]
			}
			return a.run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.anyGoal, "any", false, "Run the reachable goal with the best net value")
	cmd.Flags().StringVar(&opts.processID, "process-id", "", "Process ID (generated when empty)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Maximum steps (overrides config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Cancel the process after this long")
	cmd.Flags().StringToStringVar(&opts.vars, "var", nil, "Bind a string value (name=value)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the process record as JSON")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) run(ctx context.Context, opts *runOptions) error {
	cfg, result, err := a.loadConfig(opts.configPath, false)
	if err != nil {
		return err
	}
	if err := a.initLogging(cfg.Logging); err != nil {
		return err
	}

	if opts.maxSteps > 0 {
		result.MaxSteps = opts.maxSteps
	}

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			fmt.Fprintf(a.stderr, "warning: shutdown: %v\n", err)
		}
	}()

	if opts.metricsAddr != "" {
		if err := rt.serveMetrics(opts.metricsAddr); err != nil {
			return err
		}
	}

	engine, err := application.NewEngineWithOptions(rt.engineOptions(result)...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	runOpts := []application.RunOption{
		application.WithBlackboard(seedBlackboard(result, opts.vars)),
	}
	if opts.processID != "" {
		runOpts = append(runOpts, application.WithProcessID(opts.processID))
	}

	var p *process.Process
	if opts.anyGoal {
		goals := make([]*action.Goal, 0, len(result.Goals))
		for _, name := range result.GoalNames() {
			goals = append(goals, result.Goals[name])
		}
		p, err = engine.RunAny(ctx, goals, runOpts...)
	} else {
		var goal *action.Goal
		if goal, err = result.Goal(opts.goal); err != nil {
			return err
		}
		p, err = engine.Run(ctx, goal, runOpts...)
	}
	if p == nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(p); encErr != nil {
			return encErr
		}
	} else {
		printProcess(a, p)
	}
	return err
}

func printProcess(a *App, p *process.Process) {
	fmt.Fprintf(a.stdout, "Process %s\n", p.ID)
	fmt.Fprintf(a.stdout, "  Goal: %s\n", p.Goal)
	fmt.Fprintf(a.stdout, "  Status: %s\n", p.Status)
	if t := p.Termination; t != nil {
		fmt.Fprintf(a.stdout, "  Reason: %s\n", t.Reason)
		if t.Policy != "" {
			fmt.Fprintf(a.stdout, "  Policy: %s\n", t.Policy)
		}
		if t.Dimension != "" {
			fmt.Fprintf(a.stdout, "  Dimension: %s\n", t.Dimension)
		}
		if t.Error != "" {
			fmt.Fprintf(a.stdout, "  Error: %s\n", t.Error)
		}
	}
	u := p.Usage()
	fmt.Fprintf(a.stdout, "  Usage: cost=%g actions=%d tokens=%d\n", u.Cost, u.Actions, u.Tokens)
	fmt.Fprintf(a.stdout, "  Duration: %s\n", p.Duration())
	if p.History.Len() > 0 {
		fmt.Fprintf(a.stdout, "  History:\n")
		for i, inv := range p.History {
			fmt.Fprintf(a.stdout, "    %d. %s (cost %g, %s)\n", i+1, inv.Action, inv.Cost, inv.Duration)
		}
	}
}
