package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

type Options struct {
	Streams       []string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	BatchSize     int
	Block         time.Duration
}

// Consumer reads every configured stream through one consumer group.
type Consumer struct {
	client  redis.Cmdable
	opts    Options
	logger  zerolog.Logger
	handler MessageHandler
}

func NewConsumer(client redis.Cmdable, opts Options, logger zerolog.Logger, handler MessageHandler) *Consumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block == 0 {
		opts.Block = 5 * time.Second
	}
	if opts.ClaimInterval <= 0 {
		opts.ClaimInterval = 30 * time.Second
	}
	return &Consumer{
		client:  client,
		opts:    opts,
		logger:  logger,
		handler: handler,
	}
}

// EnsureGroups creates the consumer group on each stream, creating the stream
// when missing.
func (c *Consumer) EnsureGroups(ctx context.Context) error {
	for _, stream := range c.opts.Streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.opts.Group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group on %s: %w", stream, err)
		}
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroups(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.opts.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("stream read error")
				sleep(ctx, 2*time.Second)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("claim stalled failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	streams := make([]string, 0, len(c.opts.Streams)*2)
	streams = append(streams, c.opts.Streams...)
	for range c.opts.Streams {
		streams = append(streams, ">")
	}

	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  streams,
		Count:    int64(c.opts.BatchSize),
		Block:    c.opts.Block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, stream.Stream, msg)
		}
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, stream string, msg redis.XMessage) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error().
			Err(err).
			Str("stream", stream).
			Str("message_id", msg.ID).
			Msg("handle message failed")
		return
	}
	if err := c.client.XAck(ctx, stream, c.opts.Group, msg.ID).Err(); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("ack failed")
	}
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	for _, stream := range c.opts.Streams {
		pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  c.opts.Group,
			Idle:   c.opts.ClaimInterval,
			Start:  "-",
			End:    "+",
			Count:  int64(c.opts.BatchSize),
		}).Result()
		if err != nil {
			return fmt.Errorf("pending on %s: %w", stream, err)
		}

		for _, entry := range pending {
			msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
				Stream:   stream,
				Group:    c.opts.Group,
				Consumer: c.opts.Consumer,
				MinIdle:  c.opts.ClaimInterval,
				Messages: []string{entry.ID},
			}).Result()
			if err != nil {
				c.logger.Error().Err(err).Str("message_id", entry.ID).Msg("claim error")
				continue
			}
			for _, msg := range msgs {
				c.process(ctx, stream, msg)
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
