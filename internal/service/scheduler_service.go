package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerService runs named background jobs such as the daily digest.
type SchedulerService struct {
	cron *cron.Cron
	log  *logrus.Entry
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	cronLog := cron.PrintfLogger(logrus.StandardLogger())
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log: logrus.WithField("component", "scheduler"),
	}
}

// ScheduleDaily runs job every day at clock (HH:MM).
func (s *SchedulerService) ScheduleDaily(name, clock string, job func()) (cron.EntryID, error) {
	spec, err := dailySpec(clock)
	if err != nil {
		return 0, errors.Wrapf(err, "schedule %s", name)
	}
	return s.cron.AddJob(spec, s.named(name, job))
}

// ScheduleInterval runs job every interval, truncated to whole seconds.
func (s *SchedulerService) ScheduleInterval(name string, interval time.Duration, job func()) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, errors.Errorf("schedule %s: interval %s is shorter than a second", name, interval)
	}
	return s.cron.Schedule(cron.Every(interval), s.named(name, job)), nil
}

// NextRun reports when the entry fires next. It is zero until Start.
func (s *SchedulerService) NextRun(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

func (s *SchedulerService) named(name string, job func()) cron.Job {
	return cron.FuncJob(func() {
		start := time.Now()
		job()
		s.log.WithFields(logrus.Fields{
			"job":  name,
			"took": time.Since(start).Round(time.Millisecond),
		}).Debug("job finished")
	})
}

// dailySpec turns HH:MM into a six-field cron spec.
func dailySpec(clock string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return "", errors.Errorf("invalid time %q, expected HH:MM", clock)
	}
	return fmt.Sprintf("0 %d %d * * *", t.Minute(), t.Hour()), nil
}
