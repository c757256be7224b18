// Package mail delivers outbound e-mail. The API side only enqueues messages
// onto a Redis stream; the worker drains the stream over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TaskType tags mail entries on the outbound stream.
const TaskType = "password_reset_email"

var ErrMalformedMessage = errors.New("malformed mail message")

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// QueueSender appends messages to a Redis stream.
type QueueSender struct {
	client redis.Cmdable
	stream string
}

func NewQueueSender(client redis.Cmdable, stream string) *QueueSender {
	return &QueueSender{client: client, stream: stream}
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrMalformedMessage
	}
	_, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":    TaskType,
			"to":      msg.To,
			"subject": msg.Subject,
			"body":    msg.Body,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}

// Decode rebuilds a Message from stream entry values.
func Decode(values map[string]any) (Message, error) {
	get := func(key string) string {
		s, _ := values[key].(string)
		return s
	}
	msg := Message{To: get("to"), Subject: get("subject"), Body: get("body")}
	if msg.To == "" {
		return Message{}, ErrMalformedMessage
	}
	return msg, nil
}
