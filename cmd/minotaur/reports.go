package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"minotaur/internal/store"

	"github.com/spf13/cobra"
)

var (
	reportsLimit  int
	reportsFormat string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved analysis reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st store.Store) error {
			list, err := st.ListAnalyses(ctx, reportsLimit)
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved reports.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREPOSITORY\tDATE\tDEPENDENCIES\tVULNERABILITIES\tREAL THREATS")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					s.ID, s.RepoURL, s.CreatedAt.Format("2006-01-02 15:04"),
					s.DependenciesAnalyzed, s.VulnerabilitiesFound, s.RealThreats)
			}
			return w.Flush()
		})
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st store.Store) error {
			a, err := st.GetAnalysis(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("report %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load report: %w", err)
			}
			return writeAnalysis(cmd.OutOrStdout(), a, reportsFormat)
		})
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st store.Store) error {
			err := st.DeleteAnalysis(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("report %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to delete report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsDeleteCmd)
	reportsListCmd.Flags().IntVar(&reportsLimit, "limit", 20, "Maximum number of reports to list")
	reportsShowCmd.Flags().StringVarP(&reportsFormat, "format", "f", "json", "Output format: json, summary or markdown")
}

func withStore(fn func(ctx context.Context, st store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer st.Close()
	return fn(context.Background(), st)
}
