package stream

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-board/kanban"
)

// Event is published to the updates channel after a local board change.
type Event struct {
	InstanceID string            `json:"instanceId"`
	Kind       kanban.ChangeKind `json:"kind"`
	TaskID     string            `json:"taskId,omitempty"`
	Time       int64             `json:"time"`
}

// remoteKinds are the changes other instances need to reload for. Reorders
// and flag changes are local to the instance that made them.
var remoteKinds = map[kanban.ChangeKind]bool{
	kanban.ChangeCreated: true,
	kanban.ChangeUpdated: true,
	kanban.ChangeDeleted: true,
}

// Publisher announces local changes on a redis channel.
type Publisher struct {
	rc         *redis.Client
	channel    string
	instanceID string
	logger     *log.Logger
}

// NewPublisher creates a Publisher for channel.
func NewPublisher(rc *redis.Client, channel, instanceID string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Publisher{rc: rc, channel: channel, instanceID: instanceID, logger: logger}
}

// Notify implements kanban.Notifier. Publish failures are logged and dropped.
func (p *Publisher) Notify(ctx context.Context, ch kanban.Change) {
	if p.rc == nil || !remoteKinds[ch.Kind] {
		return
	}
	data, err := sonic.Marshal(Event{
		InstanceID: p.instanceID,
		Kind:       ch.Kind,
		TaskID:     ch.TaskID,
		Time:       time.Now().UnixMilli(),
	})
	if err != nil {
		p.logger.WithError(err).Error("stream.publish.marshal")
		return
	}
	if err := p.rc.Publish(context.WithoutCancel(ctx), p.channel, data).Err(); err != nil {
		p.logger.WithError(err).WithField("channel", p.channel).Warn("stream.publish.failed")
	}
}

// SubscribeUpdates listens for change events from other instances and calls
// onRemote for each of them. Events published by instanceID are skipped. The
// subscription is re-established if its channel closes, until ctx is done.
func SubscribeUpdates(
	ctx context.Context,
	logger *log.Logger,
	rc *redis.Client,
	channel string,
	instanceID string,
	onRemote func(ctx context.Context, ev Event),
) {
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
				var ev Event
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
					logger.WithError(err).Error("stream.subscribe.parse")
					continue
				}
				if ev.InstanceID == instanceID {
					continue
				}
				logger.WithFields(log.Fields{"from": ev.InstanceID, "kind": ev.Kind, "task_id": ev.TaskID}).Debug("stream.remote_change")
				onRemote(ctx, ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// ParseRedisOptions accepts a redis URL or an Azure style connection string
// such as "host:6380,password=secret,ssl=True".
func ParseRedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
