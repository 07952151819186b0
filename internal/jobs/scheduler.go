// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/vehicle-rental/internal/config"
)

// InvoiceBackfiller issues missing invoices, at most limit per call.
type InvoiceBackfiller interface {
	BackfillInvoices(ctx context.Context, limit int) (int, error)
}

const runTimeout = 2 * time.Minute

// Scheduler owns the cron runner.  A job run that is still going when its
// next tick fires is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func NewScheduler(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	return &Scheduler{cron: c, log: log}
}

// AddInvoiceBackfill schedules the invoice backfill.  An empty schedule
// leaves the job disabled.
func (s *Scheduler) AddInvoiceBackfill(cfg config.JobsConfig, svc InvoiceBackfiller) error {
	if cfg.BackfillSchedule == "" {
		s.log.Info("invoice backfill disabled")
		return nil
	}
	batch := cfg.BackfillBatch
	if batch <= 0 {
		batch = 200
	}
	_, err := s.cron.AddFunc(cfg.BackfillSchedule, func() { RunInvoiceBackfill(svc, batch, s.log) })
	if err != nil {
		return err
	}
	s.log.WithField("schedule", cfg.BackfillSchedule).Info("invoice backfill scheduled")
	return nil
}

// RunInvoiceBackfill performs one backfill pass.
func RunInvoiceBackfill(svc InvoiceBackfiller, batch int, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	n, err := svc.BackfillInvoices(ctx, batch)
	fields := logrus.Fields{"created": n, "took": time.Since(start).String()}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("invoice backfill failed")
		return
	}
	if n > 0 {
		log.WithFields(fields).Info("invoices backfilled")
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for running jobs up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct{ log *logrus.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.WithFields(kvFields(kv)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.WithFields(kvFields(kv)).WithError(err).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}
