package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"FaceTrack/storage/redis"
)

const (
	dailyStatsPrefix       = "stats:daily"
	messageProcessedPrefix = "message:processed"

	statsTTL     = 40 * 24 * time.Hour
	processedTTL = 48 * time.Hour
)

// IncrDailyAction 累加某天某动作（check-in / check-out）的计数
// worker 消费考勤事件时调用，供仪表盘读取
func IncrDailyAction(ctx context.Context, date, action string) error {
	key := redis.Key(dailyStatsPrefix, date, action)

	pipe := redis.Client().Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment daily stats: %w", err)
	}
	return nil
}

// GetDailyAction 读取某天某动作的计数
func GetDailyAction(ctx context.Context, date, action string) (int64, error) {
	key := redis.Key(dailyStatsPrefix, date, action)

	count, err := redis.Client().Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily stats: %w", err)
	}
	return count, nil
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}
