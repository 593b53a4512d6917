package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countJob struct {
	runs atomic.Int32
}

func (j *countJob) Name() string { return "count" }

func (j *countJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestCronSchedulerAddJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{}
	require.Error(t, s.AddJob(job, "not a spec"))
	require.NoError(t, s.AddJob(job, "@daily"))
	require.Error(t, s.AddJob(job, "0 3 * * *"))

	s.Start(context.Background())
	defer s.Stop()
	require.Eventually(t, func() bool {
		return !s.Next("count").IsZero()
	}, time.Second, 10*time.Millisecond)
	require.WithinDuration(t, time.Now(), s.Next("count"), 24*time.Hour+time.Minute)
	require.True(t, s.Next("missing").IsZero())
}

func TestCronSchedulerActivationRuns(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{}
	require.NoError(t, s.AddJob(job, "@daily"))
	act := s.activations["count"]
	act.fire()
	act.fire()
	require.Equal(t, int32(2), job.runs.Load())
}

func TestCronSchedulerDropsOverlappingActivation(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{}
	require.NoError(t, s.AddJob(job, "@daily"))
	act := s.activations["count"]
	act.running.Store(true)
	act.fire()
	require.Zero(t, job.runs.Load())
}
