package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datazip-inc/fimo/checkpoint"
	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/health"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/metrics"
	"github.com/datazip-inc/fimo/types"
)

// Syncer is the single worker of a run: pull, apply, persist, heartbeat. It is the only owner of
// the checkpoint; batch N+1 is never pulled before the checkpoint of batch N is on disk.
type Syncer struct {
	strategy   CursorStrategy
	writer     *BatchWriter
	store      checkpoint.Store
	health     health.Reporter
	delays     *backoff.ExponentialBackOff
	capability types.TargetCapability
	limit      int
	checkpoint types.Checkpoint
	sleep      func(ctx context.Context, delay time.Duration) error
}

type Option func(s *Syncer)

func WithHealth(reporter health.Reporter) Option {
	return func(s *Syncer) {
		if reporter != nil {
			s.health = reporter
		}
	}
}

// WithBackOff replaces the 10s to 60s poll schedule
func WithBackOff(delays *backoff.ExponentialBackOff) Option {
	return func(s *Syncer) {
		s.delays = delays
	}
}

// WithSleep replaces the context aware sleep between polls
func WithSleep(sleep func(ctx context.Context, delay time.Duration) error) Option {
	return func(s *Syncer) {
		s.sleep = sleep
	}
}

func NewSyncer(strategy CursorStrategy, writer *BatchWriter, store checkpoint.Store, capability types.TargetCapability, limit int, opts ...Option) *Syncer {
	if limit <= 0 {
		limit = constants.DefaultBatchLimit
	}

	syncer := &Syncer{
		strategy:   strategy,
		writer:     writer,
		store:      store,
		health:     health.Nop{},
		delays:     DefaultPollBackOff(),
		capability: capability,
		limit:      limit,
		sleep:      sleepContext,
	}
	for _, apply := range opts {
		apply(syncer)
	}

	return syncer
}

// Checkpoint returns the last persisted position
func (s *Syncer) Checkpoint() types.Checkpoint {
	return s.checkpoint
}

// Run loops until ctx is cancelled or a fatal error occurs. Retryable errors and, in field mode,
// empty polls wait per the backoff before the next pull.
func (s *Syncer) Run(ctx context.Context, start types.Checkpoint) error {
	s.checkpoint = start
	defer func() {
		if err := s.strategy.Close(context.Background()); err != nil {
			logger.Warnf("failed to close %s strategy: %s", s.strategy.Mode(), err)
		}
	}()

	logger.Infof("starting %s sync from %s with batch limit %d", s.strategy.Mode(), s.describeCheckpoint(), s.limit)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pulled, err := s.Cycle(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if types.IsFatal(err) {
				return fmt.Errorf("%s sync stopped at %s: %w", s.strategy.Mode(), s.describeCheckpoint(), err)
			}
			metrics.RetryableErrors.Inc()
			delay := s.delays.NextBackOff()
			logger.Warnf("retryable error, next attempt in %s: %s", delay, err)
			if err := s.wait(ctx, delay); err != nil {
				return err
			}
		case pulled == 0:
			metrics.EmptyPolls.Inc()
			// a change stream waits on the source itself
			if s.strategy.Mode() != types.FieldIncremental {
				continue
			}
			delay := s.delays.NextBackOff()
			logger.Infof("no new data, sleeping for %s", delay)
			if err := s.wait(ctx, delay); err != nil {
				return err
			}
		default:
			s.delays.Reset()
			metrics.BackoffSeconds.Set(0)
		}
	}
}

// Cycle runs one pull-apply-commit step and returns the number of pulled items. The applied prefix
// is persisted even when the rest of the batch fails or ctx is cancelled mid-write.
func (s *Syncer) Cycle(ctx context.Context) (int, error) {
	batch, err := s.strategy.Next(ctx, s.checkpoint, s.limit)
	if err != nil {
		return 0, err
	}
	if batch.IsEmpty() {
		s.beat()
		return 0, nil
	}

	applied, applyErr := s.writer.Apply(ctx, batch, s.capability)
	if applied > 0 {
		if err := s.commit(batch, applied); err != nil {
			return batch.Len(), err
		}
	}
	if applyErr != nil {
		if applied > 0 {
			metrics.PartialBatches.Inc()
			logger.Warnf("applied %d of %d writes, remainder is retried from %s", applied, batch.Len(), s.describeCheckpoint())
		}
		return batch.Len(), applyErr
	}

	s.beat()
	return batch.Len(), nil
}

func (s *Syncer) commit(batch *types.Batch, applied int) error {
	next := batch.CheckpointAfter(applied)
	if err := s.store.Persist(next); err != nil {
		return fmt.Errorf("failed to persist checkpoint %s: %w", next, err)
	}
	s.checkpoint = next
	// applied data restarts the schedule even when the rest of the batch failed
	s.delays.Reset()

	upserts, deletes := 0, 0
	for _, item := range batch.Items[:applied] {
		if item.Write.Delete {
			deletes++
		} else {
			upserts++
		}
	}
	metrics.BatchesApplied.Inc()
	metrics.DocumentsApplied.WithLabelValues("upsert").Add(float64(upserts))
	metrics.DocumentsApplied.WithLabelValues("delete").Add(float64(deletes))
	metrics.LastCheckpoint.SetToCurrentTime()
	logger.LogCheckpoint(next, applied)
	return nil
}

func (s *Syncer) beat() {
	if err := s.health.Beat(); err != nil {
		logger.Errorf("failed to write health file: %s", err)
	}
}

func (s *Syncer) wait(ctx context.Context, delay time.Duration) error {
	metrics.BackoffSeconds.Set(delay.Seconds())
	return s.sleep(ctx, delay)
}

func (s *Syncer) describeCheckpoint() string {
	if s.checkpoint == nil {
		return "start of history"
	}
	return s.checkpoint.String()
}
