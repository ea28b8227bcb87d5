package redis

import (
	"context"
	"fmt"
)

const commentChannel = "taskboard:comments"

// CommentBus carries persisted comment events between server instances over
// a Redis pub/sub channel, so a comment created on one instance reaches
// sessions connected to every other instance.
type CommentBus struct {
	client *Client
}

// NewCommentBus creates a new comment bus
func NewCommentBus(client *Client) *CommentBus {
	return &CommentBus{client: client}
}

// Publish sends an encoded comment envelope to all subscribed instances,
// including this one.
func (b *CommentBus) Publish(ctx context.Context, payload []byte) error {
	if err := b.client.rdb.Publish(ctx, commentChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish comment event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of raw comment envelopes. The channel closes
// when ctx is cancelled.
func (b *CommentBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	sub := b.client.rdb.Subscribe(ctx, commentChannel)

	// Force the subscription to be established before returning, so events
	// published after Subscribe returns are not missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to comment channel: %w", err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
