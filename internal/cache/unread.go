// Package cache keeps the Redis-backed counters that make poll-based chat
// cheap: unread counts are bumped on send and cleared on read, so clients
// polling their conversation list never trigger a message-table scan.
package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedis(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

type ChatCache struct {
	rdb *redis.Client
}

func NewChatCache(rdb *redis.Client) *ChatCache {
	return &ChatCache{rdb: rdb}
}

func unreadKey(conversationID, userID uuid.UUID) string {
	return fmt.Sprintf("chat:unread:%s:%s", conversationID, userID)
}

// IncrUnread bumps the recipient's unread counter for a conversation.
func (c *ChatCache) IncrUnread(ctx context.Context, conversationID, userID uuid.UUID) error {
	return c.rdb.Incr(ctx, unreadKey(conversationID, userID)).Err()
}

// ResetUnread clears the counter when the reader marks the conversation read.
func (c *ChatCache) ResetUnread(ctx context.Context, conversationID, userID uuid.UUID) error {
	return c.rdb.Del(ctx, unreadKey(conversationID, userID)).Err()
}

// Unread returns the current counter; a missing key reads as zero.
func (c *ChatCache) Unread(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	n, err := c.rdb.Get(ctx, unreadKey(conversationID, userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
