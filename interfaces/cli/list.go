package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/storage"
)

type listOptions struct {
	configPath string
	statuses   []string
	goal       string
	limit      int
	jsonOutput bool
}

func (a *App) newListCmd() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored processes",
		Long: `List processes from the configured process store, newest first.

Examples:
  # List the last 20 processes
  goap list -c goap.yaml

  # List stuck and failed processes for one goal
  goap list -c goap.yaml --status STUCK --status FAILED --goal release`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().StringSliceVar(&opts.statuses, "status", nil, "Only show processes with this status")
	cmd.Flags().StringVar(&opts.goal, "goal", "", "Only show processes for this goal")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum processes to show (0 for all)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) list(ctx context.Context, opts *listOptions) error {
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
	if stores.Processes == nil {
		return fmt.Errorf("no process store configured (storage.processes.type)")
	}

	filter := process.ListFilter{
		Goal:       opts.goal,
		Limit:      opts.limit,
		OrderBy:    process.OrderByCreatedAt,
		Descending: true,
	}
	for _, s := range opts.statuses {
		status := process.Status(strings.ToUpper(s))
		if !status.IsValid() {
			return fmt.Errorf("%w: %s", process.ErrInvalidStatus, s)
		}
		filter.Status = append(filter.Status, status)
	}

	ps, err := stores.Processes.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing processes: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ps)
	}

	if len(ps) == 0 {
		fmt.Fprintln(a.stdout, "No processes found.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGOAL\tSTATUS\tACTIONS\tCOST\tCREATED")
	for _, p := range ps {
		u := p.Usage()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%g\t%s\n",
			p.ID, p.Goal, p.Status, u.Actions, u.Cost, p.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
