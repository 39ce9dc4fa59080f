package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPingTimeout = 10 * time.Second
	// One subscription per connected user, so the pub/sub side stays small.
	pubSubPoolSize = 4
)

// RedisClients splits short commands (progress publishes, processing locks)
// from the long-lived per-user subscriptions of the websocket hub.
type RedisClients struct {
	Cmd    *redis.Client
	PubSub *redis.Client
}

// redisOptions derives the two client configurations from a redis:// URL.
func redisOptions(redisURL string) (cmd, pubsub *redis.Options, err error) {
	cmd, err = redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	cmd.ClientName = "studybuddy-cmd"

	ps := *cmd
	ps.ClientName = "studybuddy-pubsub"
	ps.PoolSize = pubSubPoolSize
	return cmd, &ps, nil
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	cmdOpt, pubsubOpt, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	clients := &RedisClients{
		Cmd:    redis.NewClient(cmdOpt),
		PubSub: redis.NewClient(pubsubOpt),
	}
	for name, c := range map[string]*redis.Client{"cmd": clients.Cmd, "pubsub": clients.PubSub} {
		if err := c.Ping(ctx).Err(); err != nil {
			clients.Close()
			return nil, fmt.Errorf("redis %s connection: %w", name, err)
		}
	}
	return clients, nil
}

func (r *RedisClients) Close() {
	r.Cmd.Close()
	r.PubSub.Close()
}
