package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/skillswap-backend/internal/goroutine"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// RedisRelay рассылает сообщения хаба через Redis pub/sub, чтобы их получили все инстансы.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, raw).Err()
}

// Subscribe подписывается на канал и вызывает onMessage до отмены ctx.
func (r *RedisRelay) Subscribe(ctx context.Context, onMessage func(Envelope)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("ws: redis subscribe: %w", err)
	}

	goroutine.SafeGoNamed("ws relay", func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					logger.Log.WithField("error", err.Error()).Warn("ws: некорректное сообщение relay")
					continue
				}
				onMessage(env)
			}
		}
	})
	return nil
}
