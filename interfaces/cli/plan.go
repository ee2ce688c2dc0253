package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/goap/application"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	infraconfig "github.com/felixgeelhaar/goap/infrastructure/config"
)

type planOptions struct {
	configPath string
	goal       string
	vars       map[string]string
	jsonOutput bool
}

func (a *App) newPlanCmd() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan [goal]",
		Short: "Compute a plan without executing it",
		Long: `Derive the world state from the declared bindings and print the
cheapest plan to the goal. Nothing is executed.

Examples:
  # Plan to the default goal
  goap plan -c goap.yaml

  # Plan to a named goal with an extra binding
  goap plan -c goap.yaml --var ticket=T-1 release`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.goal = args[0]
			}
			return a.plan(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().StringToStringVar(&opts.vars, "var", nil, "Bind a string value (name=value)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) plan(cmd *cobra.Command, opts *planOptions) error {
	cfg, result, err := a.loadConfig(opts.configPath, false)
	if err != nil {
		return err
	}
	if err := a.initLogging(cfg.Logging); err != nil {
		return err
	}

	goal, err := result.Goal(opts.goal)
	if err != nil {
		return err
	}
	engine, err := application.NewEngineWithOptions(application.FromConfig(result)...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	bb := seedBlackboard(result, opts.vars)
	plan, ws, err := engine.Plan(cmd.Context(), goal, bb)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	if opts.jsonOutput {
		out := map[string]any{
			"goal":        goal.Name(),
			"found":       plan != nil,
			"world_state": ws.Map(),
		}
		if plan != nil {
			out["actions"] = plan.Names()
			out["cost"] = plan.Cost
			out["net_value"] = plan.NetValue()
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(a.stdout, "Goal: %s\n", goal.Name())
	fmt.Fprintf(a.stdout, "World state: %s\n", ws)
	switch {
	case plan == nil:
		fmt.Fprintf(a.stdout, "No plan: goal is unreachable from this state\n")
	case plan.IsComplete():
		fmt.Fprintf(a.stdout, "Goal already satisfied\n")
	default:
		fmt.Fprintf(a.stdout, "Plan (%d actions, cost %g):\n", plan.Len(), plan.Cost)
		for i, name := range plan.Names() {
			fmt.Fprintf(a.stdout, "  %d. %s\n", i+1, name)
		}
	}
	return nil
}

// seedBlackboard returns the declared blackboard with vars bound on top,
// in name order.
func seedBlackboard(result *infraconfig.BuildResult, vars map[string]string) *blackboard.Blackboard {
	bb := result.NewBlackboard()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bb.Set(strings.TrimSpace(name), vars[name])
	}
	return bb
}
