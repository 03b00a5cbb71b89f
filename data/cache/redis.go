package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
	"github.com/redis/go-redis/v9"
)

const fundamentalsKeyPrefix = "fundamentals:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetFundamentals(ctx context.Context, fundamentals model.Fundamentals) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetFundamentals start", slog.String("rqID", rqID), slog.String("symbol", fundamentals.Symbol))

	fundamentalsJson, err := json.Marshal(fundamentals)
	if err != nil {
		slog.Error(
			"can't marshall fundamentals in SetFundamentals",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("fundamentals", fundamentals),
		)
		return errors.New("can't marshall fundamentals")
	}

	err = r.redis.Set(ctx, fundamentalsKeyPrefix+fundamentals.Symbol, fundamentalsJson, r.cfg.Cache.FundamentalsExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("symbol", fundamentals.Symbol))
		return err
	}

	slog.Debug("SetFundamentals completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetFundamentals start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	res, err := r.redis.Get(ctx, fundamentalsKeyPrefix+symbol).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("symbol", symbol))
		}
		return model.Fundamentals{}, err
	}

	fundamentals := model.Fundamentals{}
	err = json.Unmarshal([]byte(res), &fundamentals)
	if err != nil {
		slog.Error(
			"can't unmarshall fundamentals in GetFundamentals",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Fundamentals{}, errors.New("can't unmarshall fundamentals")
	}

	slog.Debug("GetFundamentals finished", slog.String("rqID", rqID))

	return fundamentals, nil
}
