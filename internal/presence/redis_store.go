package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// redisStore implements Store using Redis.
type redisStore struct {
	client *redis.Client
}

// Redis key patterns:
// presence:room:{room_id}:viewers       SET<conn_id>   - connections viewing the room
// presence:live_rooms                   SET<room_id>   - rooms currently live
// presence:room:{room_id}:live_status   HASH           - is_live, broadcaster_id, started_at

func roomViewersKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s:viewers", roomID)
}

const liveRoomsKey = "presence:live_rooms"

func roomLiveStatusKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s:live_status", roomID)
}

// NewRedisStore creates a new Redis-backed presence store.
func NewRedisStore(cfg RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisStore{client: client}, nil
}

func (s *redisStore) AddViewer(ctx context.Context, roomID, connID string) error {
	return s.client.SAdd(ctx, roomViewersKey(roomID), connID).Err()
}

func (s *redisStore) RemoveViewer(ctx context.Context, roomID, connID string) error {
	return s.client.SRem(ctx, roomViewersKey(roomID), connID).Err()
}

func (s *redisStore) ViewerCount(ctx context.Context, roomID string) (int64, error) {
	return s.client.SCard(ctx, roomViewersKey(roomID)).Result()
}

func (s *redisStore) SetLive(ctx context.Context, roomID, broadcasterID string) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, liveRoomsKey, roomID)
	pipe.HSet(ctx, roomLiveStatusKey(roomID),
		"is_live", "true",
		"broadcaster_id", broadcasterID,
		"started_at", strconv.FormatInt(time.Now().Unix(), 10),
	)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) ClearLive(ctx context.Context, roomID string) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, liveRoomsKey, roomID)
	pipe.Del(ctx, roomLiveStatusKey(roomID))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
