// Package redisnotify carries task change notices between join processes over Redis pub/sub.
package redisnotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/join/internal/app"
)

// DefaultChannel defines a package constant value.
const DefaultChannel = "join:tasks:changed"

// reconnectDelay is the pause between a dropped subscription and the next attempt.
var reconnectDelay = time.Second

// Publisher publishes change notices on one Redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher constructs a new value for this package.
func NewPublisher(client *redis.Client, channel string) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}, nil
}

// Publish encodes and publishes one notice.
func (p *Publisher) Publish(ctx context.Context, notice app.ChangeNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode change notice: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change notice: %w", err)
	}
	return nil
}

// Subscribe delivers notices from other origins until ctx is canceled, resubscribing when the channel drops.
func Subscribe(
	ctx context.Context,
	logger *charmLog.Logger,
	client *redis.Client,
	channel string,
	origin string,
	onNotice func(app.ChangeNotice),
) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	for {
		sub := client.Subscribe(ctx, channel)
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
				var notice app.ChangeNotice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
					logger.Error("unable to parse change notice", "err", err)
					continue
				}
				if origin != "" && notice.Origin == origin {
					continue
				}
				onNotice(notice)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("redis subscription closed, reconnecting", "channel", channel)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
