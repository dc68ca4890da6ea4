package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tidyboard-api/domain"
)

// Invalidator evicts a user's cached views after a mutation announcement.
type Invalidator interface {
	InvalidateViews(ctx context.Context, userID string)
}

// handlers dispatches message types to their effect. Unknown types are
// dropped so old instances survive newer publishers.
var handlers = map[string]func(ctx context.Context, inv Invalidator, env Envelope){
	domain.EventTaskUpdated: func(ctx context.Context, inv Invalidator, env Envelope) {
		inv.InvalidateViews(ctx, env.UserID)
	},
}

// Subscribe listens for mutation announcements and keeps the local cache
// honest. It blocks until ctx is cancelled, reconnecting whenever the pub/sub
// channel closes.
func Subscribe(ctx context.Context, logger *logrus.Logger, rc *redis.Client, inv Invalidator, channel string) {
	if channel == "" {
		channel = DefaultChannel
	}
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env Envelope
				if err := sonic.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.WithError(err).Error("unable to parse task update")
					continue
				}
				handle, known := handlers[env.Type]
				if !known {
					logger.WithField("type", env.Type).Debug("ignoring unknown event type")
					continue
				}
				handle(ctx, inv, env)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
