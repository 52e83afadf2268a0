package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/fimo/checkpoint"
	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/health"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/types"
)

const setupAttempts = 3

// AbstractDriver runs the replication of one configured collection pair on top of a driver
type AbstractDriver struct { //nolint:revive
	driver DriverInterface
	config *types.SyncConfig
}

func NewAbstractDriver(driver DriverInterface, config *types.SyncConfig) *AbstractDriver {
	return &AbstractDriver{driver: driver, config: config}
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

// Setup connects the driver, retrying transient failures
func (a *AbstractDriver) Setup(ctx context.Context) error {
	return RetryOnBackoff(ctx, setupAttempts, 2*time.Second, func() error {
		return a.driver.Setup(ctx, a.config)
	})
}

func (a *AbstractDriver) Close(ctx context.Context) error {
	return a.driver.Close(ctx)
}

// Store returns the checkpoint store for the configured mode
func (a *AbstractDriver) Store() checkpoint.Store {
	if a.config.CheckpointFile == "" {
		logger.Warn("no resume file configured, checkpoints are kept in memory and lost on restart")
		return checkpoint.NewMemoryStore(a.config.Mode, a.config.SyncField, nil)
	}

	return checkpoint.NewFileStore(a.config.CheckpointFile, a.config.Mode, a.config.SyncField)
}

// Check probes the target and resolves the starting checkpoint without replicating anything
func (a *AbstractDriver) Check(ctx context.Context, store checkpoint.Store) (types.TargetCapability, types.Checkpoint, error) {
	capability := ProbeCapability(ctx, a.driver)
	start, _, err := checkpoint.Resolve(store, a.config)
	if err != nil {
		return capability, nil, err
	}

	return capability, start, nil
}

// Sync replicates until ctx is cancelled or a fatal error stops it
func (a *AbstractDriver) Sync(ctx context.Context, store checkpoint.Store, reporter health.Reporter) error {
	start, overridden, err := checkpoint.Resolve(store, a.config)
	if err != nil {
		return fmt.Errorf("failed to resolve starting checkpoint for %s sync: %w", a.config.Mode, err)
	}
	if overridden {
		logger.Infof("resuming from operator supplied position %s", start)
	} else if start != nil {
		logger.Infof("resuming from stored checkpoint %s", start)
	}

	strategy, err := NewCursorStrategy(a.config.Mode, a.driver, a.config.SyncField)
	if err != nil {
		return err
	}
	if a.config.Mode == types.FieldIncremental {
		logger.Warnf("field mode on [%s] does not observe deletes; documents removed from %s stay in %s",
			a.config.SyncField, a.config.Source.Namespace(), a.config.Target.Namespace())
	}

	capability := ProbeCapability(ctx, a.driver)
	limit := a.config.BatchLimit
	if limit <= 0 {
		limit = constants.DefaultBatchLimit
	}

	syncer := NewSyncer(strategy, NewBatchWriter(a.driver), store, capability, limit, WithHealth(reporter))
	return syncer.Run(ctx, start)
}
