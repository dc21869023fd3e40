package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "IgniteX/internal/domain/repository"
)

const (
	dedupKeyPrefix = "ignitex:dedup:"
	dedupIndexKey  = "ignitex:dedup:index"
)

// RedisDedupStore holds admission reservations in Redis so the dedup window
// survives restarts. Each reservation is a TTL key; a ZSET scored by
// admission time backs the sweep and the oldest-first cap eviction.
type RedisDedupStore struct {
	cli *redis.Client
	now func() time.Time
}

func NewRedisDedupStore(cli *redis.Client) *RedisDedupStore {
	return &RedisDedupStore{cli: cli, now: time.Now}
}

func (s *RedisDedupStore) Reserve(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	now := s.now()
	full := dedupKeyPrefix + key

	set, err := s.cli.SetNX(ctx, full, now.UnixMilli(), window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("dedup reserve: %w", err)
	}
	if !set {
		remaining, err := s.cli.PTTL(ctx, full).Result()
		if err != nil {
			return true, 0, fmt.Errorf("dedup ttl: %w", err)
		}
		if remaining > 0 {
			return true, remaining, nil
		}
		// Key is expiring between the SETNX and the PTTL; claim it.
		if err := s.cli.Set(ctx, full, now.UnixMilli(), window).Err(); err != nil {
			return false, 0, fmt.Errorf("dedup overwrite: %w", err)
		}
	}

	if err := s.cli.ZAdd(ctx, dedupIndexKey, redis.Z{Score: float64(now.UnixMilli()), Member: key}).Err(); err != nil {
		// Drop the TTL key again or the failed reservation would hold the
		// (instrument, direction) slot for the whole window.
		_ = s.cli.Del(ctx, full).Err()
		return false, 0, fmt.Errorf("dedup index: %w", err)
	}
	return false, 0, nil
}

func (s *RedisDedupStore) Release(ctx context.Context, key string) error {
	if err := s.cli.Del(ctx, dedupKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return s.cli.ZRem(ctx, dedupIndexKey, key).Err()
}

func (s *RedisDedupStore) Sweep(ctx context.Context, window time.Duration, cap int) (int, error) {
	now := s.now()
	cutoff := now.Add(-window).UnixMilli()

	// The TTL keys expire on their own; the index needs explicit pruning.
	removed, err := s.cli.ZRemRangeByScore(ctx, dedupIndexKey,
		"-inf", fmt.Sprintf("%d", cutoff)).Result()
	if err != nil {
		return 0, fmt.Errorf("dedup sweep: %w", err)
	}

	if cap > 0 {
		total, err := s.cli.ZCard(ctx, dedupIndexKey).Result()
		if err != nil {
			return int(removed), fmt.Errorf("dedup card: %w", err)
		}
		if int(total) > cap {
			over := int(total) - cap
			oldest, err := s.cli.ZRange(ctx, dedupIndexKey, 0, int64(over-1)).Result()
			if err != nil {
				return int(removed), fmt.Errorf("dedup evict range: %w", err)
			}
			for _, key := range oldest {
				if err := s.Release(ctx, key); err != nil {
					return int(removed), err
				}
				removed++
			}
		}
	}
	return int(removed), nil
}

func (s *RedisDedupStore) Len(ctx context.Context) (int, error) {
	n, err := s.cli.ZCard(ctx, dedupIndexKey).Result()
	return int(n), err
}

var _ domrepo.DedupStore = (*RedisDedupStore)(nil)
