package cache

import (
	"context"
	"fmt"
	"time"

	"FaceTrack/storage/redis"
)

// 通过 SetNX 实现分布式锁：
// 台账写入按 (member, day) 串行化，对账任务按任务名防止 cron 双触发

const (
	lockPrefix       = "lock"
	ledgerLockPrefix = "lock:ledger"

	// LedgerLockTTL 台账锁的保底过期时间，防止持有者崩溃后死锁
	LedgerLockTTL = 10 * time.Second
)

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {

	fullkey := redis.Key(lockPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullkey, 1, ttl).Result()

	if err != nil {
		return false, err
	}

	return result, err
}

func Unlock(ctx context.Context, key string) error {
	fullkey := redis.Key(lockPrefix, key)

	return redis.Client().Del(ctx, fullkey).Err()
}

// ledgerKey (member, day) 维度的台账锁键
func ledgerKey(memberID int64, day string) string {
	return redis.Key(ledgerLockPrefix, day, fmt.Sprintf("%d", memberID))
}

// TryLockLedger 获取某成员某天的台账锁
// 拿不到说明同一成员的另一次扫描正在写入，调用方应快速失败
func TryLockLedger(ctx context.Context, memberID int64, day string) (bool, error) {
	result, err := redis.Client().SetNX(ctx, ledgerKey(memberID, day), 1, LedgerLockTTL).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

// UnlockLedger 释放台账锁
func UnlockLedger(ctx context.Context, memberID int64, day string) error {
	return redis.Client().Del(ctx, ledgerKey(memberID, day)).Err()
}
