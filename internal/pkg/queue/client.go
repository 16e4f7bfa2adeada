package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/postflow-social/postflow/internal/pkg/config"
)

const (
	TypeScheduleRun = "schedule:run"
)

const (
	QueueDefault = "default"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg *config.RedisConfig) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ScheduleRunPayload carries one claimed schedule to an execution unit.
type ScheduleRunPayload struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	UserID     uuid.UUID `json:"user_id"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// EnqueueScheduleRun hands a claimed schedule to the worker pool.
// MaxRetry is zero: retry is tick-driven through the post state
// machine, not through the queue.
func (c *Client) EnqueueScheduleRun(ctx context.Context, payload ScheduleRunPayload) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeScheduleRun, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	return c.client.EnqueueContext(ctx, task)
}
