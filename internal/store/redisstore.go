package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/obslog"
	"go.uber.org/zap"
)

// RedisStore keeps one key per channel board and per guild grant set.
// Boards are durable state, so no TTL is applied.
type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) keyBoard(channel string) string { return "lb:board:" + strings.TrimSpace(channel) }
func (s *RedisStore) keyGrants(guild string) string  { return "lb:grants:" + strings.TrimSpace(guild) }

func (s *RedisStore) LoadBoard(ctx context.Context, channel string) (*board.Board, error) {
	raw, err := s.rdb.Get(ctx, s.keyBoard(channel)).Bytes()
	if err == redis.Nil {
		return board.New(), nil
	}
	if err != nil {
		return nil, err
	}
	b, upgraded, ok := decodeBoardPayload(raw)
	if !ok {
		obslog.L().Warn("board_key_malformed", zap.String("channel", channel))
		return board.New(), nil
	}
	if upgraded {
		if err := s.SaveBoard(ctx, channel, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *RedisStore) SaveBoard(ctx context.Context, channel string, b *board.Board) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyBoard(channel), raw, 0).Err()
}

func (s *RedisStore) LoadGrants(ctx context.Context, guild string) (*Grants, error) {
	raw, err := s.rdb.Get(ctx, s.keyGrants(guild)).Bytes()
	if err == redis.Nil {
		return NewGrants(), nil
	}
	if err != nil {
		return nil, err
	}
	var g Grants
	if err := json.Unmarshal(raw, &g); err != nil {
		obslog.L().Warn("grants_key_malformed", zap.String("guild", guild))
		return NewGrants(), nil
	}
	return &g, nil
}

func (s *RedisStore) SaveGrants(ctx context.Context, guild string, g *Grants) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyGrants(guild), raw, 0).Err()
}
