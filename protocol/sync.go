package protocol

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/datazip-inc/fimo/health"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/metrics"
	"github.com/datazip-inc/fimo/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// syncCmd replicates until interrupted or stopped by a fatal error
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "replicate the source collection into the target",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := connector.Setup(ctx); err != nil {
			return err
		}
		defer func() {
			if err := connector.Close(context.Background()); err != nil {
				logger.Errorf("failed to close %s connector: %s", connector.Type(), err)
			}
		}()

		store := connector.Store()
		reporter := health.New(syncConfig.HealthFile)
		tasks := []func(ctx context.Context) error{
			func(ctx context.Context) error {
				return connector.Sync(ctx, store, reporter)
			},
		}
		if address := viper.GetString(metricsAddressFlag); address != "" {
			logger.Infof("serving metrics on %s/metrics", address)
			tasks = append(tasks, func(ctx context.Context) error {
				return metrics.Serve(ctx, address)
			})
		}

		err := utils.ErrExec(ctx, tasks...)
		if errors.Is(err, context.Canceled) {
			logger.Info("sync interrupted, last checkpoint is persisted")
			return nil
		}

		return err
	},
}
