package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type RedisSession struct {
	redis      *redis.Client
	expiration time.Duration
}

func NewRedisSession(redisClient *redis.Client, expiration time.Duration) *RedisSession {
	return &RedisSession{redis: redisClient, expiration: expiration}
}

func sessionKey(chatID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisSession) GetSession(ctx context.Context, chatID int64) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, sessionKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.Int64("chatID", chatID))
		return model.Session{}, err
	}

	var session model.Session
	if err := json.Unmarshal([]byte(res), &session); err != nil {
		return model.Session{}, fmt.Errorf("unmarshall session: %w", err)
	}

	return session, nil
}

func (r *RedisSession) SetSession(ctx context.Context, chatID int64, session model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshall session: %w", err)
	}

	err = r.redis.Set(ctx, sessionKey(chatID), raw, r.expiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()), slog.Int64("chatID", chatID))
		return err
	}

	return nil
}

func (r *RedisSession) DeleteSession(ctx context.Context, chatID int64) error {
	return r.redis.Del(ctx, sessionKey(chatID)).Err()
}
