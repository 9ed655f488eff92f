package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ChannelLifecycle is the Redis pub/sub channel downstream services
// subscribe to for archive/unarchive notifications.
const ChannelLifecycle = "roost:lifecycle"

// LifecycleNotifyJob relays queued transitions to the Redis channel.
type LifecycleNotifyJob struct {
	Redis  *redis.Client
	Logger *slog.Logger
}

// NewLifecycleNotifyJob initialises the notify handler.
func NewLifecycleNotifyJob(rdb *redis.Client, logger *slog.Logger) *LifecycleNotifyJob {
	return &LifecycleNotifyJob{Redis: rdb, Logger: logger}
}

// Handle processes TaskTypeLifecycleNotify tasks.
func (j *LifecycleNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LifecycleNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(
		slog.String("resource_type", payload.ResourceType),
		slog.String("resource_id", payload.ResourceID.String()),
		slog.String("kind", payload.Kind),
		slog.Bool("cancelled", payload.Cancelled),
	)

	if j.Redis != nil {
		if err := j.Redis.Publish(ctx, ChannelLifecycle, t.Payload()).Err(); err != nil {
			logger.Error("publish lifecycle notification", slog.Any("error", err))
			return err
		}
	}
	logger.Info("delivered lifecycle notification",
		slog.String("transaction_id", payload.TransactionID.String()))
	return nil
}

func (j *LifecycleNotifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeLifecycleNotify))
	}
	return slog.Default().With(slog.String("job", TaskTypeLifecycleNotify))
}
