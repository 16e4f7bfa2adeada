package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// LoggingMiddleware logs every task with its duration.
func LoggingMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()

			err := next.ProcessTask(ctx, task)
			duration := time.Since(start)

			if err != nil {
				log.Error().
					Err(err).
					Str("task_type", task.Type()).
					Dur("duration", duration).
					Msg("Task failed")
				return err
			}

			log.Debug().
				Str("task_type", task.Type()).
				Dur("duration", duration).
				Msg("Task completed")
			return nil
		})
	}
}

// RecoveryMiddleware turns a handler panic into an error so one bad
// task never takes the worker down.
func RecoveryMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("task_type", task.Type()).
						Interface("panic", r).
						Str("stack", string(debug.Stack())).
						Msg("Task handler panicked")
					err = fmt.Errorf("task panicked: %v", r)
				}
			}()
			return next.ProcessTask(ctx, task)
		})
	}
}
