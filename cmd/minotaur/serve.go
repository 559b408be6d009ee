package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"minotaur/internal/config"
	"minotaur/internal/metrics"
	"minotaur/internal/store"
	"minotaur/internal/telemetry"
	"minotaur/internal/web"

	"github.com/spf13/cobra"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API",
	Long: `Starts the HTTP API:

  POST   /api/analyze        analyze {"repo_url": "..."} and save the report
  GET    /api/reports        list saved reports
  GET    /api/reports/{id}   fetch one report
  DELETE /api/reports/{id}   delete one report
  GET    /health             liveness
  GET    /metrics            Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Interface to bind")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if cmd.Flags().Changed("port") {
			c.Server.Port = servePort
		}
	})
	if err != nil {
		return err
	}

	m := metrics.NewMetrics()
	eng, err := newAnalyzer(cfg, m)
	if err != nil {
		return err
	}

	var st store.Store
	if s, err := openStore(cfg); err != nil {
		telemetry.LogWarn("Report storage disabled", "error", err)
	} else {
		st = s
		defer st.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(eng, st, m, cfg.Server.Port)
	srv.Host = serveHost
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving API at http://%s:%d\n", serveHost, cfg.Server.Port)
	return srv.Start(ctx)
}
