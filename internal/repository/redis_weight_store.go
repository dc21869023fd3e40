package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
)

const (
	weightKeyPrefix  = "ignitex:weights:"
	winRateKeyPrefix = "ignitex:winrates:"
)

// RedisWeightStore keeps the adaptive (strategy, regime) weight table in
// Redis hashes, one hash per regime, so weights survive restarts and are
// shared by the aggregator, the quality gate, and the feedback loop.
type RedisWeightStore struct {
	cli *redis.Client
}

func NewRedisWeightStore(cli *redis.Client) *RedisWeightStore {
	return &RedisWeightStore{cli: cli}
}

func (s *RedisWeightStore) Weight(ctx context.Context, strategyID string, regime models.Regime) (float64, bool, error) {
	return s.get(ctx, weightKeyPrefix+string(regime), strategyID)
}

func (s *RedisWeightStore) SetWeight(ctx context.Context, strategyID string, regime models.Regime, w float64) error {
	return s.set(ctx, weightKeyPrefix+string(regime), strategyID, w)
}

func (s *RedisWeightStore) WinRate(ctx context.Context, strategyID string, regime models.Regime) (float64, bool, error) {
	return s.get(ctx, winRateKeyPrefix+string(regime), strategyID)
}

func (s *RedisWeightStore) SetWinRate(ctx context.Context, strategyID string, regime models.Regime, rate float64) error {
	return s.set(ctx, winRateKeyPrefix+string(regime), strategyID, rate)
}

// Snapshot returns every stored value for one regime, for the operator API.
func (s *RedisWeightStore) Snapshot(ctx context.Context, regime models.Regime) (weights, winRates map[string]float64, err error) {
	weights, err = s.getAll(ctx, weightKeyPrefix+string(regime))
	if err != nil {
		return nil, nil, err
	}
	winRates, err = s.getAll(ctx, winRateKeyPrefix+string(regime))
	if err != nil {
		return nil, nil, err
	}
	return weights, winRates, nil
}

func (s *RedisWeightStore) get(ctx context.Context, key, field string) (float64, bool, error) {
	raw, err := s.cli.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("hget %s/%s: %w", key, field, err)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s/%s: %w", key, field, err)
	}
	return v, true, nil
}

func (s *RedisWeightStore) set(ctx context.Context, key, field string, v float64) error {
	if err := s.cli.HSet(ctx, key, field, strconv.FormatFloat(v, 'f', -1, 64)).Err(); err != nil {
		return fmt.Errorf("hset %s/%s: %w", key, field, err)
	}
	return nil
}

func (s *RedisWeightStore) getAll(ctx context.Context, key string) (map[string]float64, error) {
	raw, err := s.cli.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	out := make(map[string]float64, len(raw))
	for field, val := range raw {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		out[field] = v
	}
	return out, nil
}

var _ domrepo.WeightStore = (*RedisWeightStore)(nil)
