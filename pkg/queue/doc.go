// Package queue is a small persistent task queue.
//
// An Enqueuer stores one-time tasks named after their payload type. A
// Worker claims due tasks, runs the Handler registered under the task name
// and records the outcome; failed tasks are retried with exponential
// backoff until MaxAttempts is reached or the handler returns an error
// wrapping ErrSkipRetry. A Scheduler keeps one pending instance of each
// periodic task.
//
// PostgresStorage backs all three with the queue_tasks table and claims
// tasks with FOR UPDATE SKIP LOCKED. MemoryStorage serves tests.
//
//	enq, _ := queue.NewEnqueuer(storage)
//	_, err := enq.Enqueue(ctx, SendEmail{To: "a@example.com"})
//
//	w, _ := queue.NewWorker(storage, queue.WithMaxConcurrentTasks(4))
//	_ = w.Register(queue.NewTaskHandler(func(ctx context.Context, p SendEmail) error {
//		return send(ctx, p)
//	}))
//	go w.Run(ctx)
package queue
