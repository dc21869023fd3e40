package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
)

const bufferKeyPrefix = "ignitex:buffer:"

// RedisBufferStore snapshots the distributor's per-tier buffers so pending
// candidates survive a restart. One JSON blob per tier; the buffers are small
// by construction (capped) and rewritten on every mutation.
type RedisBufferStore struct {
	cli *redis.Client
}

func NewRedisBufferStore(cli *redis.Client) *RedisBufferStore {
	return &RedisBufferStore{cli: cli}
}

func (s *RedisBufferStore) Save(ctx context.Context, tier string, candidates []models.BufferedCandidate) error {
	key := bufferKeyPrefix + tier
	if len(candidates) == 0 {
		if err := s.cli.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("buffer del %s: %w", tier, err)
		}
		return nil
	}
	b, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("buffer marshal %s: %w", tier, err)
	}
	if err := s.cli.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("buffer set %s: %w", tier, err)
	}
	return nil
}

func (s *RedisBufferStore) Load(ctx context.Context, tier string) ([]models.BufferedCandidate, error) {
	raw, err := s.cli.Get(ctx, bufferKeyPrefix+tier).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buffer get %s: %w", tier, err)
	}
	var out []models.BufferedCandidate
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("buffer unmarshal %s: %w", tier, err)
	}
	return out, nil
}

var _ domrepo.BufferStore = (*RedisBufferStore)(nil)
