package abstract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datazip-inc/fimo/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffSequence(t *testing.T) {
	delays := DefaultPollBackOff()

	var observed []time.Duration
	for i := 0; i < 5; i++ {
		observed = append(observed, delays.NextBackOff())
	}
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second}, observed)

	for i := 0; i < 64; i++ {
		require.Equal(t, 60*time.Second, delays.NextBackOff(), "the schedule never stops")
	}

	delays.Reset()
	assert.Equal(t, 10*time.Second, delays.NextBackOff(), "a successful batch starts over at the base delay")
}

func TestRetryOnBackoff(t *testing.T) {
	testCases := []struct {
		name          string
		attempts      int
		failures      int
		err           error
		expectedCalls int
		wantErr       bool
	}{
		{name: "succeeds after transient failures", attempts: 3, failures: 2, err: errors.New("connection refused"), expectedCalls: 3},
		{name: "gives up after attempts", attempts: 3, failures: 5, err: errors.New("connection refused"), expectedCalls: 3, wantErr: true},
		{name: "fatal errors are not retried", attempts: 3, failures: 5, err: types.InvalidConfig.New("bad uri"), expectedCalls: 1, wantErr: true},
		{name: "single attempt", attempts: 1, failures: 1, err: errors.New("connection refused"), expectedCalls: 1, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := RetryOnBackoff(context.Background(), tc.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tc.failures {
					return tc.err
				}
				return nil
			})

			assert.Equal(t, tc.expectedCalls, calls)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.err.Error(), err.Error(), "the last error of f is returned unwrapped")
		})
	}
}

func TestRetryOnBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryOnBackoff(ctx, 10, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
