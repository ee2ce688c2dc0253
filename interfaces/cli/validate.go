package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/goap/domain/config"
	infraconfig "github.com/felixgeelhaar/goap/infrastructure/config"
)

type validateOptions struct {
	configPath string
	strict     bool
	watch      bool
}

func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a goap configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Budget ceilings and policy names
  - Storage, observability and messaging settings
  - Actions and goals of the declared domain

Examples:
  # Validate a configuration file
  goap validate -c goap.yaml

  # Strict validation (fail on missing env vars)
  goap validate -c goap.yaml --strict

  # Revalidate whenever the file changes
  goap validate -c goap.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.validateConfig(opts); err != nil {
				return err
			}
			if opts.watch {
				return a.watchConfig(cmd.Context(), opts)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Revalidate when the file changes")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) validateConfig(opts *validateOptions) error {
	cfg, result, err := a.loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	printSummary(a.stdout, cfg, result)
	return nil
}

// watchConfig blocks until ctx is done, reporting each reload. Invalid
// revisions are reported, not returned.
func (a *App) watchConfig(ctx context.Context, opts *validateOptions) error {
	fmt.Fprintf(a.stdout, "\nWatching %s for changes (Ctrl+C to stop)\n", opts.configPath)

	loader := infraconfig.NewLoader(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(opts.strict),
	)
	return loader.Watch(ctx, opts.configPath, func(cfg *domainconfig.Config, err error) {
		if err == nil {
			var result *infraconfig.BuildResult
			result, err = infraconfig.NewBuilder(cfg).Build()
			if err == nil {
				fmt.Fprintln(a.stdout)
				printSummary(a.stdout, cfg, result)
				return
			}
		}
		fmt.Fprintf(a.stdout, "\n✗ Configuration is invalid: %v\n", err)
	})
}

func printSummary(w io.Writer, cfg *domainconfig.Config, result *infraconfig.BuildResult) {
	fmt.Fprintf(w, "✓ Configuration is valid\n")
	fmt.Fprintf(w, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "  Version: %s\n", cfg.Version)
	if cfg.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", cfg.Description)
	}

	fmt.Fprintf(w, "\nConfiguration summary:\n")
	planner := result.PlannerType
	if planner == "" {
		planner = "astar"
	}
	fmt.Fprintf(w, "  Planner: %s\n", planner)
	fmt.Fprintf(w, "  Max steps: %d\n", result.MaxSteps)
	fmt.Fprintf(w, "  Budget: cost=%g actions=%d tokens=%d\n", result.Budget.Cost, result.Budget.Actions, result.Budget.Tokens)
	for _, p := range cfg.Policies {
		fmt.Fprintf(w, "    + %s\n", p.Name)
	}

	if len(result.Actions) > 0 {
		fmt.Fprintf(w, "  Actions: %d\n", len(result.Actions))
		for _, act := range result.Actions {
			fmt.Fprintf(w, "    - %s (cost %g)\n", act.Name(), act.Cost(nil))
		}
	}
	if names := result.GoalNames(); len(names) > 0 {
		fmt.Fprintf(w, "  Goals: %s\n", strings.Join(names, ", "))
		if result.DefaultGoal != nil {
			fmt.Fprintf(w, "  Default goal: %s\n", result.DefaultGoal.Name())
		}
	}

	if s := cfg.Storage; s.Processes.Type != "" || s.Events.Type != "" {
		fmt.Fprintf(w, "  Storage: processes=%s events=%s\n", orNone(s.Processes.Type), orNone(s.Events.Type))
	}
	if result.Executor != nil {
		fmt.Fprintf(w, "  Resilience: enabled\n")
	}
	if cfg.Observability.Tracing.Enabled {
		exporter := cfg.Observability.Tracing.Exporter
		if exporter == "" {
			exporter = "stdout"
		}
		fmt.Fprintf(w, "  Tracing: %s\n", exporter)
	}
	if cfg.Messaging.NATS.Enabled {
		fmt.Fprintf(w, "  NATS: %s\n", cfg.Messaging.NATS.URL)
	}
	for _, hook := range cfg.Messaging.Webhooks {
		fmt.Fprintf(w, "  Webhook: %s\n", hook.URL)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
