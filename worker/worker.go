package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// IJob scheduled job
type IJob interface {
	Start() error
	Run()
	Stop() error
}

var _ IJob = (*BaseJob)(nil)

// OnWork one round of a job
type OnWork func(ctx context.Context) error

// BaseJob runs OnWork on a cron schedule. A round still running when the
// next one is due makes the next one skip.
type BaseJob struct {
	Cron   *cron.Cron
	Name   string
	OnWork OnWork

	ctx context.Context
}

// NewBaseJob schedules onWork with a cron spec such as "@every 1m"
func NewBaseJob(name, spec string, location *time.Location, onWork OnWork) (*BaseJob, error) {
	if location == nil {
		location = time.Local
	}

	log := cron.PrintfLogger(logrus.WithField("worker", name))
	job := &BaseJob{
		Cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		Name:   name,
		OnWork: onWork,
		ctx:    context.Background(),
	}

	if _, err := job.Cron.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("schedule %s with %q: %w", name, spec, err)
	}

	return job, nil
}

func (job *BaseJob) Start() error {
	job.Cron.Start()
	return nil
}

// Stop stops the schedule and waits for the running round
func (job *BaseJob) Stop() error {
	<-job.Cron.Stop().Done()
	return nil
}

func (job *BaseJob) Run() {
	log := logger.FromContext(job.ctx).WithField("worker", job.Name)
	if err := job.OnWork(logger.WithContext(job.ctx, log)); err != nil {
		log.WithError(err).Errorln("work failed")
	}
}

// Serve runs the job until ctx is done
func (job *BaseJob) Serve(ctx context.Context) error {
	job.ctx = ctx
	if err := job.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return job.Stop()
}
