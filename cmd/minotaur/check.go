package main

import (
	"fmt"
	"text/tabwriter"

	"minotaur/internal/config"

	"github.com/spf13/cobra"
)

var checkInit bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Long: `Loads config.yaml, .env and MINOTAUR_* variables, reports every invalid
setting and prints the effective values.

With --init, writes the defaults to the config file first (never overwriting).`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkInit, "init", false, "Write a default config file if none exists")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkInit {
		path := cfgFile
		if path == "" {
			path = "config.yaml"
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration file: %s\n", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "advisory source\t%s\n", cfg.OSV.BaseURL)
	fmt.Fprintf(w, "llm provider\t%s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "llm model\t%s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "confidence threshold\t%.2f\n", cfg.Triage.ConfidenceThreshold)
	fmt.Fprintf(w, "max dependencies\t%d\n", cfg.Analysis.MaxDependencies)
	fmt.Fprintf(w, "concurrency\t%d\n", cfg.Analysis.Concurrency)
	fmt.Fprintf(w, "deadline\t%s\n", cfg.Analysis.Deadline)
	fmt.Fprintf(w, "store\t%s\n", cfg.Store.Type)
	fmt.Fprintf(w, "slack notifications\t%t\n", cfg.Notifications.Slack.WebhookURL != "")
	fmt.Fprintf(w, "discord notifications\t%t\n", cfg.Notifications.Discord.WebhookURL != "")
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}
