package config

import (
	"os"
	"strings"
)

// QueueConfig locates the RabbitMQ broker and names the reservation event
// queue.
type QueueConfig struct {
	URL     string
	Queue   string
	LogFile string // where the consumer appends received events
}

// LoadQueueConfig reads RABBITMQ_URL (falling back to AMQP_URL).  An empty
// URL disables publishing and consuming.
func LoadQueueConfig() QueueConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return QueueConfig{
		URL:     url,
		Queue:   envStr("RESERVATION_EVENTS_QUEUE", "reservation.events"),
		LogFile: envStr("RESERVATION_EVENTS_LOG", "logs/reservations.log"),
	}
}

// JobsConfig schedules background maintenance.
type JobsConfig struct {
	BackfillSchedule string // cron spec, empty disables the job
	BackfillBatch    int
}

// LoadJobsConfig reads INVOICE_BACKFILL_SCHEDULE; "off" disables the job.
func LoadJobsConfig() JobsConfig {
	spec := strings.TrimSpace(envStr("INVOICE_BACKFILL_SCHEDULE", "*/10 * * * *"))
	if strings.EqualFold(spec, "off") {
		spec = ""
	}
	return JobsConfig{
		BackfillSchedule: spec,
		BackfillBatch:    envInt("INVOICE_BACKFILL_BATCH", 200),
	}
}
