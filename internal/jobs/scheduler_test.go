package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vehicle-rental/internal/config"
)

type fakeBackfiller struct {
	created int
	err     error
	limits  []int
}

func (f *fakeBackfiller) BackfillInvoices(_ context.Context, limit int) (int, error) {
	f.limits = append(f.limits, limit)
	return f.created, f.err
}

func TestRunInvoiceBackfillLogsOutcome(t *testing.T) {
	log, hook := test.NewNullLogger()

	RunInvoiceBackfill(&fakeBackfiller{created: 3}, 50, log)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "invoices backfilled", hook.LastEntry().Message)
	assert.Equal(t, 3, hook.LastEntry().Data["created"])

	hook.Reset()
	RunInvoiceBackfill(&fakeBackfiller{}, 50, log)
	assert.Empty(t, hook.Entries)

	RunInvoiceBackfill(&fakeBackfiller{err: errors.New("db down")}, 50, log)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestAddInvoiceBackfill(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewScheduler(log)

	require.NoError(t, s.AddInvoiceBackfill(config.JobsConfig{}, &fakeBackfiller{}))
	assert.Empty(t, s.cron.Entries())

	require.NoError(t, s.AddInvoiceBackfill(config.JobsConfig{BackfillSchedule: "*/10 * * * *", BackfillBatch: 20}, &fakeBackfiller{}))
	assert.Len(t, s.cron.Entries(), 1)

	assert.Error(t, s.AddInvoiceBackfill(config.JobsConfig{BackfillSchedule: "not a spec"}, &fakeBackfiller{}))
}

func TestScheduledJobUsesBatch(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewScheduler(log)
	f := &fakeBackfiller{}
	require.NoError(t, s.AddInvoiceBackfill(config.JobsConfig{BackfillSchedule: "@every 1h"}, f))

	s.cron.Entries()[0].Job.Run()
	assert.Equal(t, []int{200}, f.limits)
}
