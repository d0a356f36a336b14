package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelService answers membership queries against the real-time channel layer.
// Membership is read as a snapshot on demand; nothing here depends on push delivery.
type ChannelService interface {
	IsMember(ctx context.Context, channel, userID string) (bool, error)
}

const channelKeyPrefix = "presence:"

// leaveScript decrements the connection count and drops the field once it reaches zero,
// so a user with two open tabs stays a member until both close.
var leaveScript = redis.NewScript(`
local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
if n <= 0 then
  redis.call("HDEL", KEYS[1], ARGV[1])
  return 0
end
return n
`)

// RedisChannelService tracks channel membership as per-user connection counts in a Redis hash.
type RedisChannelService struct {
	client *redis.Client
}

// NewRedisChannelService creates a channel service backed by client
func NewRedisChannelService(client *redis.Client) *RedisChannelService {
	return &RedisChannelService{client: client}
}

// Join registers one connection of userID in channel
func (s *RedisChannelService) Join(ctx context.Context, channel, userID string) error {
	if err := s.client.HIncrBy(ctx, channelKey(channel), userID, 1).Err(); err != nil {
		return fmt.Errorf("failed to join channel: %w", err)
	}
	return nil
}

// Leave removes one connection of userID from channel
func (s *RedisChannelService) Leave(ctx context.Context, channel, userID string) error {
	if err := leaveScript.Run(ctx, s.client, []string{channelKey(channel)}, userID).Err(); err != nil {
		return fmt.Errorf("failed to leave channel: %w", err)
	}
	return nil
}

// IsMember reports whether userID has at least one open connection in channel
func (s *RedisChannelService) IsMember(ctx context.Context, channel, userID string) (bool, error) {
	n, err := s.client.HGet(ctx, channelKey(channel), userID).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read channel membership: %w", err)
	}
	return n > 0, nil
}

// Members returns the users currently in channel
func (s *RedisChannelService) Members(ctx context.Context, channel string) ([]string, error) {
	members, err := s.client.HKeys(ctx, channelKey(channel)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list channel members: %w", err)
	}
	return members, nil
}

func channelKey(channel string) string {
	return channelKeyPrefix + channel
}
