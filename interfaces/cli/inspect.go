package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/goap/application"
	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/inspector"
	"github.com/felixgeelhaar/goap/infrastructure/storage"
)

type inspectOptions struct {
	configPath string
	jsonOutput bool
	format     string
}

func (a *App) newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <process-id>",
		Short: "Replay a process from its recorded events",
		Long: `Rebuild a process from the configured event store and show what it
planned and executed at every step.

Examples:
  # Show the step-by-step timeline of a process
  goap inspect -c goap.yaml proc-1700000000000000000-1a2b3c4d

  # Output the timeline as JSON
  goap inspect -c goap.yaml --json proc-1700000000000000000-1a2b3c4d

  # Render the executed actions as a Mermaid flowchart
  goap inspect -c goap.yaml --format mermaid proc-1700000000000000000-1a2b3c4d`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON (same as --format json)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format (text, json, dot, mermaid)")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) inspect(ctx context.Context, processID string, opts *inspectOptions) error {
	cfg, _, err := a.loadConfig(opts.configPath, false)
	if err != nil {
		return err
	}
	if err := a.initLogging(cfg.Logging); err != nil {
		return err
	}

	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()
	if stores.Events == nil {
		return fmt.Errorf("no event store configured (storage.events.type)")
	}

	replay := application.NewReplay(stores.Events)
	p, err := replay.ReconstructProcess(ctx, processID)
	if err != nil {
		return fmt.Errorf("replaying %s: %w", processID, err)
	}
	timeline, err := replay.NewTimeline(ctx, processID)
	if err != nil {
		return fmt.Errorf("replaying %s: %w", processID, err)
	}
	steps := timeline.Steps()

	format := opts.format
	if opts.jsonOutput {
		format = string(inspector.FormatJSON)
	}
	if format != "text" {
		out, err := inspector.New().Export(exportProcess(p, steps), inspector.Format(format))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.stdout, string(out))
		return err
	}

	printProcess(a, p)
	fmt.Fprintf(a.stdout, "  Events: %d over %s\n", timeline.Len(), timeline.Duration())
	if len(steps) == 0 {
		return nil
	}
	fmt.Fprintf(a.stdout, "  Steps:\n")
	for _, s := range steps {
		plan := "<none>"
		if len(s.Plan) > 0 {
			plan = strings.Join(s.Plan, " -> ")
		}
		fmt.Fprintf(a.stdout, "    %d. plan %s\n", s.Number, plan)
		if s.Action == "" {
			continue
		}
		outcome := "ok"
		switch {
		case s.Error != "":
			outcome = "error: " + s.Error
		case !s.Progress:
			outcome = "no progress"
		}
		fmt.Fprintf(a.stdout, "       ran %s (cost %g, %s): %s\n", s.Action, s.Cost, s.Duration, outcome)
	}
	return nil
}

func exportProcess(p *process.Process, steps []application.Step) *inspector.ProcessExport {
	usage := p.Usage()
	out := &inspector.ProcessExport{
		ID:       p.ID,
		Goal:     p.Goal,
		Status:   string(p.Status),
		Cost:     usage.Cost,
		Actions:  usage.Actions,
		Duration: p.Duration(),
		Steps:    make([]inspector.StepExport, len(steps)),
	}
	if p.Termination != nil {
		out.Reason = p.Termination.Reason
		out.Policy = p.Termination.Policy
	}
	for i, s := range steps {
		out.Steps[i] = inspector.StepExport{
			Number:   s.Number,
			Plan:     s.Plan,
			Action:   s.Action,
			Cost:     s.Cost,
			Duration: s.Duration,
			Progress: s.Progress,
			Error:    s.Error,
		}
	}
	return out
}
