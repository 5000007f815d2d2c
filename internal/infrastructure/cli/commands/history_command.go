package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/cli/helpers"
	"github.com/doeshing/agentguard/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(load ContainerFunc) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the decision log",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(load),
		newHistorySearchCommand(load),
		newHistoryClearCommand(load),
		newHistoryExportCommand(load),
		newHistoryStatsCommand(load),
		newHistoryRetainCommand(load),
	)

	return historyCmd
}

func historyStore(cmd *cobra.Command, load ContainerFunc) (ports.DecisionLog, error) {
	container, err := load(cmd.Context())
	if err != nil {
		return nil, err
	}
	if container.HistoryStore == nil {
		return nil, errors.New(ErrHistoryStoreUnavailable)
	}
	return container.HistoryStore, nil
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(load ContainerFunc) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(cmd, load)
			if err != nil {
				return err
			}
			records, err := store.Records(limit, "")
			if err != nil {
				return fmt.Errorf("failed to retrieve history records: %w", err)
			}
			displayRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	return cmd
}

// newHistorySearchCommand creates the 'history search' subcommand
func newHistorySearchCommand(load ContainerFunc) *cobra.Command {
	var query string
	var searchLimit int

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search decisions by subject, rule, explanation or decision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" && len(args) == 1 {
				query = args[0]
			}
			if query == "" {
				return errors.New(ErrQueryRequired)
			}
			store, err := historyStore(cmd, load)
			if err != nil {
				return err
			}
			records, err := store.Records(searchLimit, query)
			if err != nil {
				return fmt.Errorf("failed to search history: %w", err)
			}
			displayRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search keyword")
	cmd.Flags().IntVar(&searchLimit, "limit", DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(cmd, load)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			return nil
		},
	}
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export decisions to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(cmd, load)
			if err != nil {
				return err
			}
			if err := store.ExportJSON(args[0]); err != nil {
				return fmt.Errorf("failed to export history to %s: %w", args[0], err)
			}
			return nil
		},
	}
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show decision distribution and the most frequently matched rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(cmd, load)
			if err != nil {
				return err
			}
			records, err := store.Records(MaxHistoryAnalysisRecords, "")
			if err != nil {
				return fmt.Errorf("failed to retrieve history for analysis: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, MsgNoHistoryRecorded)
				return nil
			}
			displayStats(out, helpers.AnalyzeDecisions(records, 5))
			return nil
		},
	}
}

// newHistoryRetainCommand creates the 'history retain' subcommand
func newHistoryRetainCommand(load ContainerFunc) *cobra.Command {
	var retainDays int

	cmd := &cobra.Command{
		Use:   "retain",
		Short: "Prune decisions older than N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				retainDays = container.Config.GetHistoryRetentionDays()
			}
			if retainDays <= 0 {
				return errors.New(ErrInvalidRetainDays)
			}
			store, err := historyStore(cmd, load)
			if err != nil {
				return err
			}
			cutoff := time.Now().AddDate(0, 0, -retainDays)
			removed, err := store.PruneBefore(cutoff)
			if err != nil {
				return fmt.Errorf("failed to prune old history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d decisions older than %d days.\n", removed, retainDays)
			return nil
		},
	}

	cmd.Flags().IntVar(&retainDays, "days", DefaultHistoryRetainDays, "Days to retain (default from history.retention_days)")
	return cmd
}

func displayRecords(out io.Writer, records []domain.DecisionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return
	}
	color := helpers.IsTerminal(out)
	for _, rec := range records {
		fmt.Fprintf(out, "%s | %-5s | %-11s | %s\n",
			rec.Timestamp.Local().Format(TimestampFormat),
			helpers.DecisionLabel(rec.Decision, color),
			rec.Kind,
			helpers.Truncate(rec.Subject, 80))
		if rec.Rule != "" {
			fmt.Fprintf(out, "    %s\n", rec.Rule)
		}
	}
}

func displayStats(out io.Writer, stats helpers.DecisionStats) {
	fmt.Fprintf(out, "Decisions analyzed: %d\nAverage evaluation: %dus\n", stats.Total, stats.AvgMicros)

	fmt.Fprintln(out, "By decision:")
	for _, d := range []domain.Decision{domain.DecisionAllow, domain.DecisionAsk, domain.DecisionBlock} {
		n := stats.ByDecision[d]
		fmt.Fprintf(out, "  %-5s %d (%.1f%%)\n", d, n, helpers.Percent(n, stats.Total))
	}

	fmt.Fprintln(out, "By kind:")
	kinds := make([]string, 0, len(stats.ByKind))
	for k := range stats.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-11s %d\n", k, stats.ByKind[domain.ActionKind(k)])
	}

	if len(stats.TopRules) > 0 {
		fmt.Fprintln(out, "Top rules:")
		for _, rule := range stats.TopRules {
			fmt.Fprintf(out, "  %s (%d)\n", rule.Rule, rule.Count)
		}
	}
}
