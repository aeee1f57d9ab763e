// Command scand runs the scan orchestration engine: the HTTP API, the scan
// queue and the single-slot orchestrator, wired to the Valkey dashboard
// state, the RabbitMQ notification queue and the optional Postgres event log.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/FileGuard/go-engine/fileguard/api"
	"github.com/FileGuard/go-engine/fileguard/config"
	"github.com/FileGuard/go-engine/fileguard/notify"
	"github.com/FileGuard/go-engine/fileguard/orchestrator"
	"github.com/FileGuard/go-engine/fileguard/postgres"
	"github.com/FileGuard/go-engine/fileguard/provider"
	"github.com/FileGuard/go-engine/fileguard/scan"
	"github.com/FileGuard/go-engine/fileguard/slogger"
	"github.com/FileGuard/go-engine/fileguard/state"
	"github.com/FileGuard/go-engine/fileguard/stats"
	"github.com/FileGuard/go-engine/fileguard/store"
	"github.com/FileGuard/go-engine/nvd"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scand",
	Short: "File scan orchestration engine",
	Long:  "scand runs the scan queue, progress simulation and analysis orchestration behind the dashboard.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engine and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Tail the notification queue to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listen()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default /etc/fileguard/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listenCmd)
}

func main() {
	godotenv.Load()
	slogger.Init()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	config.InitConfig(cfgFile)
	cfg := config.Get()

	queue := scan.NewQueue()
	health := stats.NewHealthModel()
	options := scan.NewOptionsStore()

	nvdClient := nvd.NewClient()
	if cfg.Provider.NVDBaseURL != "" {
		nvdClient.BaseURL = cfg.Provider.NVDBaseURL
	}
	analyzer := provider.NewHTTPAnalyzer(cfg.Provider.AnalyzeURL, nvdClient)

	orch := orchestrator.New(queue, analyzer, health, options, orchestrator.DefaultConfig())
	orch.SetNotificationsEnabled(cfg.Notify.Enabled)

	// State publishing and KV notifications degrade to logging when Valkey
	// is unreachable at startup.
	kv, err := store.NewValkeyStore(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("Valkey unavailable, dashboard state publishing disabled", "error", err)
	} else {
		defer kv.Close()
		orch.SetPublisher(state.NewPublisher(kv))
	}

	notifiers := notify.Multi{notify.NewAMQPNotifier(cfg.AMQP.URL, cfg.Notify.Queue)}
	if kv != nil {
		notifiers = append(notifiers, notify.NewKVNotifier(kv))
	}
	orch.SetNotifier(notifiers)

	if cfg.Postgres.DSN != "" {
		if err := postgres.Connect(cfg.Postgres.DSN); err != nil {
			slog.Warn("Postgres unavailable, event logging disabled", "error", err)
		}
	} else {
		slog.Info("No Postgres DSN configured, event logging disabled")
	}

	server := api.NewServer(cfg.HTTP.Addr, &api.Handlers{
		Queue:   queue,
		Orch:    orch,
		Health:  health,
		Options: options,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func listen() error {
	config.InitConfig(cfgFile)
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notify.Listen(ctx, cfg.AMQP.URL, cfg.Notify.Queue, func(msg string) {
		fmt.Println(msg)
	})
	return nil
}
