package main

import (
	"fmt"
	"os"

	"minotaur/internal/config"
	"minotaur/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exit = os.Exit
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "minotaur",
	Short: "Dependency threat radar",
	Long: `minotaur finds the known vulnerabilities in a repository's dependency graph,
asks a reasoning model whether each one is plausibly exploitable in that
codebase, and ranks the results by threat level.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")
}

// initConfig reads .env, the config file and MINOTAUR_* variables.
func initConfig() {
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
		return
	}
	telemetry.InitLogger(viper.GetBool("debug"), viper.GetString("log_file"))
}

// loadConfig decodes the configuration, applies command-line overrides and
// validates the result.
func loadConfig(overrides ...func(*config.Config)) (config.Config, error) {
	cfg, err := config.Current()
	if err != nil {
		return config.Config{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
