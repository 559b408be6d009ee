package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"minotaur/internal/config"
	"minotaur/internal/engine"
	"minotaur/internal/metrics"
	"minotaur/internal/report"
	"minotaur/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// analyzer is the part of the engine the commands use.
type analyzer interface {
	Analyze(ctx context.Context, target string) (report.Analysis, error)
}

var newAnalyzer = func(cfg config.Config, m *metrics.Metrics) (analyzer, error) {
	return engine.FromConfig(cfg, m)
}

var openStore = func(cfg config.Config) (store.Store, error) {
	return store.NewStore(store.StoreConfig{Type: cfg.Store.Type, ConnectionString: cfg.Store.DSN})
}

var (
	analyzeFormat       string
	analyzeSave         bool
	analyzeMaxDeps      int
	analyzeThreshold    float64
	analyzeNoTransitive bool
	analyzeConcurrency  int
	analyzeStore        string
	analyzeProvider     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-url|path>",
	Short: "Analyze a repository's dependencies for exploitable vulnerabilities",
	Long: `Extracts the dependency graph of a GitHub repository or local directory,
matches every dependency against the OSV advisory database and triages each
match with the configured reasoning model.

Exits with status 1 when any finding is judged EXPLOITABLE.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "summary", "Output format: json, summary or markdown")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save-report", false, "Persist the report in the configured store")
	analyzeCmd.Flags().IntVar(&analyzeMaxDeps, "max-deps", 0, "Maximum number of dependencies to analyze")
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "triage-threshold", 0, "Confidence required to keep an EXPLOITABLE verdict")
	analyzeCmd.Flags().BoolVar(&analyzeNoTransitive, "no-transitive", false, "Only analyze direct dependencies")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "Parallel advisory lookups and triage calls")
	analyzeCmd.Flags().StringVar(&analyzeStore, "store", "", "Report store type: sqlite or postgres")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "Reasoning provider: openai, openrouter, gemini, ollama or mock")
}

func analyzeOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("max-deps") {
			cfg.Analysis.MaxDependencies = analyzeMaxDeps
		}
		if flags.Changed("triage-threshold") {
			cfg.Triage.ConfidenceThreshold = analyzeThreshold
		}
		if analyzeNoTransitive {
			cfg.Analysis.IncludeTransitive = false
		}
		if flags.Changed("concurrency") {
			cfg.Analysis.Concurrency = analyzeConcurrency
		}
		if flags.Changed("store") {
			cfg.Store.Type = analyzeStore
		}
		if flags.Changed("provider") {
			cfg.LLM.Provider = analyzeProvider
		}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	switch analyzeFormat {
	case "json", "summary", "markdown":
	default:
		return fmt.Errorf("unknown format %q (expected json, summary or markdown)", analyzeFormat)
	}

	cfg, err := loadConfig(analyzeOverrides(cmd))
	if err != nil {
		return err
	}

	eng, err := newAnalyzer(cfg, metrics.NewMetrics())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Analyzing %s...\n", args[0])
	a, err := eng.Analyze(ctx, args[0])
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeSave {
		if err := saveAnalysis(ctx, cfg, a); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved with id %s\n", a.ID)
	}

	if err := writeAnalysis(cmd.OutOrStdout(), a, analyzeFormat); err != nil {
		return err
	}

	if a.HasRealThreats() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d real threat(s) found\n", a.RealThreats)
		exit(1)
	}
	return nil
}

func saveAnalysis(ctx context.Context, cfg config.Config, a report.Analysis) error {
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer st.Close()
	if err := st.SaveAnalysis(ctx, a); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// writeAnalysis renders a in the requested format.
func writeAnalysis(w io.Writer, a report.Analysis, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	case "markdown":
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		out, err := renderer.Render(report.Markdown(a.Report))
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		_, err = fmt.Fprint(w, out)
		return err
	default:
		if a.ID != "" {
			fmt.Fprintf(w, "Report %s (%s, %.1fs)\n", a.ID, a.Timestamp.Format("2006-01-02 15:04:05 MST"), a.Duration)
		}
		return report.WriteSummary(w, a.Report)
	}
}
