package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

// Progress steps published while an upload is processed.
const (
	StepValidated  = "validated"
	StepCacheHit   = "cache_hit"
	StepCacheMiss  = "cache_miss"
	StepExtracting = "extracting"
	StepGenerating = "generating"
	StepSaving     = "saving"
	StepDone       = "done"
	StepFailed     = "failed"
)

const ProgressMessageType = "progress"

// ProgressPublisher delivers progress events. Errors are logged by the caller
// and never fail the request.
type ProgressPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev models.ProgressEvent) error
}

// UserChannel is the Redis channel the websocket hub subscribes to for a user.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, ev models.ProgressEvent) error {
	data, err := json.Marshal(models.WSMessage{Type: ProgressMessageType, Payload: ev})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, UserChannel(userID), string(data)).Err()
}

// LogPublisher writes events to a logger. The CLI uses it.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, userID uuid.UUID, ev models.ProgressEvent) error {
	p.log.Info(ev.Step, "user_id", userID, "file_hash", ev.FileHash, "message", ev.Message, "cached", ev.Cached)
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uuid.UUID, models.ProgressEvent) error { return nil }
