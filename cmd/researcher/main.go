package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/report"
	srv "github.com/mohammad-safakhou/researcher/internal/server"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "researcher"}

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if serveAddr == "" {
				serveAddr = os.Getenv("RESEARCHER_HTTP_ADDR")
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")

	var topic string
	var run = &cobra.Command{
		Use:   "run",
		Short: "Run a one-shot research report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return fmt.Errorf("--topic is required")
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			tele := telemetry.NewTelemetry(cfg.Telemetry)
			orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
			orch, err := report.NewOrchestrator(cfg, orchLogger, tele)
			if err != nil {
				return err
			}

			rep, err := orch.Run(context.Background(), topic, func(ev report.Event) {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", ev.Progress, ev.Message)
			})
			if err != nil {
				return err
			}

			for _, sec := range rep.Sections {
				fmt.Printf("## %s\n", sec.Name)
				fmt.Printf("Queries: %v\n\n", sec.Queries)
			}
			fmt.Println(rep.FinalReport)
			return nil
		},
	}
	run.Flags().StringVar(&topic, "topic", "", "research topic")

	root.AddCommand(serve, run)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
