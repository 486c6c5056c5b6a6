package queue

import "time"

// Config holds worker and scheduler settings.
type Config struct {
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"2s"`
	LockTimeout        time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	MaxConcurrentTasks int           `env:"QUEUE_MAX_CONCURRENT_TASKS" envDefault:"4"`
	MaxAttempts        int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"5"`
	RetryBaseDelay     time.Duration `env:"QUEUE_RETRY_BASE_DELAY" envDefault:"30s"`
	SchedulerInterval  time.Duration `env:"QUEUE_SCHEDULER_INTERVAL" envDefault:"30s"`
}
