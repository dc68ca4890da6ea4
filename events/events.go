// Package events carries task mutations between API instances over Redis
// pub/sub. Publishing is fire and forget; a lost message only delays cache
// eviction until the TTL catches up.
package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tidyboard-api/domain"
)

// DefaultChannel is the pub/sub channel task mutations are announced on.
const DefaultChannel = "task-updates"

// Envelope is the wire format of one pub/sub message.
type Envelope struct {
	Type    string       `json:"type"`
	UserID  string       `json:"userId"`
	Payload TaskMutation `json:"payload"`
}

// TaskMutation identifies which task changed and where it lives.
type TaskMutation struct {
	TaskID    string       `json:"taskId"`
	BoardID   string       `json:"boardId,omitempty"`
	Space     domain.Space `json:"space,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// Notifier publishes task mutations for other instances to observe.
type Notifier struct {
	redis   *redis.Client
	channel string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewNotifier creates a Notifier publishing on the given channel.
func NewNotifier(client *redis.Client, channel string, logger *logrus.Logger) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{redis: client, channel: channel, logger: logger, now: time.Now}
}

// TaskUpdated announces one applied task change. Publish failures are logged
// and swallowed; the mutation itself already succeeded.
func (n *Notifier) TaskUpdated(ctx context.Context, userID, taskID, boardID string, space domain.Space) {
	if n.redis == nil {
		return
	}
	env := Envelope{
		Type:   domain.EventTaskUpdated,
		UserID: userID,
		Payload: TaskMutation{
			TaskID:    taskID,
			BoardID:   boardID,
			Space:     space,
			Timestamp: n.now().Unix(),
		},
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		n.logger.WithError(err).Error("marshal task update")
		return
	}
	if err := n.redis.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.WithError(err).WithField("taskId", taskID).Error("publish task update")
	}
}
