package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/warmer/models"
)

type countingRunner struct {
	calls     atomic.Int32
	trigger   atomic.Value
	companyID atomic.Int64
	block     chan struct{}
}

func (r *countingRunner) Run(ctx context.Context, trigger string, companyID int64) (models.RunSummary, error) {
	r.calls.Add(1)
	r.trigger.Store(trigger)
	r.companyID.Store(companyID)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	return models.RunSummary{RunID: "r"}, nil
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0 9 * * *"))
	assert.NoError(t, Validate("@daily"))
	assert.NoError(t, Validate("*/30 * * * * *"))
	assert.Error(t, Validate("every day"))
	assert.Error(t, Validate(""))
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Spec: "@daily", Timezone: "Mars/Olympus"}, &countingRunner{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	s, err := New(Config{Spec: "0 9 * * *", Timezone: "UTC"}, &countingRunner{}, zerolog.Nop())
	require.NoError(t, err)
	next := s.Next()
	assert.Equal(t, 9, next.UTC().Hour())
	assert.True(t, next.After(time.Now()))
}

func TestTickRunsWithCronTrigger(t *testing.T) {
	r := &countingRunner{}
	s, err := New(Config{Spec: "@every 1s", CompanyID: 7}, r, zerolog.Nop())
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()

	assert.Equal(t, Trigger, r.trigger.Load())
	assert.Equal(t, int64(7), r.companyID.Load())
}

func TestStopCancelsInFlightRun(t *testing.T) {
	r := &countingRunner{block: make(chan struct{})}
	s, err := New(Config{Spec: "@every 1s"}, r, zerolog.Nop())
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
	// Ticks are skipped while a run is still going.
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestTickAfterCancelIsNoop(t *testing.T) {
	r := &countingRunner{}
	s, err := New(Config{Spec: "@daily"}, r, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.tick()
	s.Stop()
	assert.Equal(t, int32(0), r.calls.Load())
}
