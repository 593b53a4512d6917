// Package schedule fires periodic background work such as nightly retraining.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// Standard five-field specs plus descriptors such as "@daily" or "@every 6h".
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// activation is one scheduled job. An activation that fires while the
// previous one is still running is dropped, never queued.
type activation struct {
	job     Job
	spec    string
	id      cron.EntryID
	running atomic.Bool
	parent  *CronScheduler
}

type CronScheduler struct {
	cron        *cron.Cron
	activations map[string]*activation
	ctx         context.Context
}

func NewCronScheduler() *CronScheduler {
	return &CronScheduler{
		cron:        cron.New(cron.WithParser(specParser)),
		activations: make(map[string]*activation),
	}
}

// AddJob registers job under its name. Names are unique; specs are
// validated before anything is registered.
func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	if _, ok := c.activations[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	if _, err := specParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	act := &activation{job: job, spec: spec, parent: c}
	id, err := c.cron.AddFunc(spec, act.fire)
	if err != nil {
		return err
	}
	act.id = id
	c.activations[name] = act
	logutil.GetLogger(context.Background()).Info("background job scheduled",
		zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Next reports the next activation of a started job, zero if unknown.
func (c *CronScheduler) Next(name string) time.Time {
	act, ok := c.activations[name]
	if !ok {
		return time.Time{}
	}
	return c.cron.Entry(act.id).Next
}

// Start begins firing jobs; ctx is handed to every run.
func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

// Stop waits for in-flight runs to return.
func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (a *activation) fire() {
	ctx := a.parent.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("job", a.job.Name()), zap.String("spec", a.spec))
	if !a.running.CompareAndSwap(false, true) {
		logger.Warn("previous run still in progress, activation dropped")
		return
	}
	defer a.running.Store(false)

	start := time.Now()
	if err := a.job.Run(ctx); err != nil {
		logger.Error("background job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("background job done", zap.Duration("duration", time.Since(start)))
}
