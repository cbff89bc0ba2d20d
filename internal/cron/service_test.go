package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commerce-core/pkg/locks"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
)

type fakeLocker struct {
	held     map[string]bool
	err      error
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (locks.Lock, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.held[key] {
		return nil, locks.ErrNotAcquired
	}
	f.held[key] = true
	return releaseFunc(func() {
		delete(f.held, key)
		f.released++
	}), nil
}

type releaseFunc func()

func (r releaseFunc) Release(context.Context) error {
	r()
	return nil
}

func newCronService(t *testing.T, locker locks.Locker, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(jobs...),
		Locker:   locker,
		LockKey:  "commerce:cron:test",
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc
}

func TestRunCycleRunsEveryJobEvenOnFailure(t *testing.T) {
	ok := &stubJob{name: "ok"}
	failing := &stubJob{name: "failing", err: errors.New("boom")}
	after := &stubJob{name: "after"}
	locker := &fakeLocker{held: map[string]bool{}}
	svc := newCronService(t, locker, ok, failing, after)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, locker.released)
	assert.Empty(t, locker.held)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &stubJob{name: "job"}
	locker := &fakeLocker{held: map[string]bool{"commerce:cron:test": true}}
	svc := newCronService(t, locker, job)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunCycleReportsLockErrors(t *testing.T) {
	job := &stubJob{name: "job"}
	svc := newCronService(t, &fakeLocker{err: errors.New("redis down")}, job)

	err := svc.runCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &stubJob{name: "job"}
	svc := newCronService(t, locks.NoopLocker{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresLockKey(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Locker: locks.NoopLocker{}})
	assert.Error(t, err)
}
