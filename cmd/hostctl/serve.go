package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/chronicals/sdk/adapters/redisdlock"
	"github.com/chronicals/sdk/internal/metrics"
	"github.com/chronicals/sdk/pkg/hostsession"
	"github.com/chronicals/sdk/pkg/shutdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the orchestrator and serve declared routes persistently",
	Long:  `Opens a Host Session against the configured orchestrator endpoint, declaring every route in routesDirectory and serving transactions/pages until an interrupt or terminate signal drains the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		loader, err := newRouteLoader(cfg)
		if err != nil {
			return err
		}

		instanceID, _ := cmd.Flags().GetString("instance-id")
		if instanceID == "" {
			instanceID = uuid.NewString()
		}

		reg := metrics.New()
		opts := []hostsession.Option{hostsession.WithMetrics(reg)}
		if redisAddr, _ := cmd.Flags().GetString("redis-addr"); redisAddr != "" {
			client := backend.NewClient(&backend.Options{Addr: redisAddr})
			opts = append(opts, hostsession.WithLocker(redisdlock.NewLocker(client, "hostsdk:")))
		}

		sess := hostsession.New(cfg, instanceID, newSocketFactory(cfg), loader, logger, opts...)

		if metricsAddr, _ := cmd.Flags().GetString("metrics-addr"); metricsAddr != "" {
			go serveMetrics(metricsAddr, reg, logger)
		}

		hardTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		coord := shutdown.New(sess, logger, hardTimeout)
		ctx := coord.Listen()

		if err := sess.Listen(ctx); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		logger.Info("hostctl serve: session established", "instanceId", instanceID, "state", sess.State())

		coord.Wait()
		logger.Info("hostctl serve: drained, exiting")
		return nil
	},
}

func serveMetrics(addr string, reg *metrics.Registry, logger *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: reg.Handler()}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", "err", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("instance-id", "", "Stable instanceId to present to the orchestrator (random if omitted)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the distributed lock guarding one active socket per instanceId")
	serveCmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")
	serveCmd.Flags().Duration("shutdown-timeout", 15*time.Second, "Hard timeout to force-close after SIGINT/SIGTERM if draining hasn't finished")
}
