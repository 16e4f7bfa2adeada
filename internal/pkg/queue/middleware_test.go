package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddlewareTurnsPanicIntoError(t *testing.T) {
	handler := RecoveryMiddleware()(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		panic("handler bug")
	}))

	task := asynq.NewTask(TypeScheduleRun, nil)

	var err error
	require.NotPanics(t, func() {
		err = handler.ProcessTask(context.Background(), task)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler bug")
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	wantErr := errors.New("task error")
	handler := LoggingMiddleware()(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		return wantErr
	}))

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TypeScheduleRun, nil))
	assert.ErrorIs(t, err, wantErr)
}
