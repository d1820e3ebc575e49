package cache

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"FaceTrack/internal/model"
	"FaceTrack/pkg/logger"
)

// 候选池缓存：扫描请求每次都要整池顺序比对，池子本身只在成员增删
// 或换参考照片时变化，放 redis 短 TTL 缓存挡掉绝大多数池查询

const scanPoolKey = "candidates"

// GetScanPool 读取缓存的识别候选池，未命中返回 (nil, false)
func GetScanPool(ctx context.Context) ([]*model.Member, bool) {
	var pool []*model.Member

	hit, err := ScanPoolProtectedCache.Get(ctx, scanPoolKey, &pool)
	if err != nil {
		logger.Logger.Warn("Failed to read scan pool cache", zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}

	return pool, true
}

// SetScanPool 写入识别候选池缓存，失败只记日志
func SetScanPool(ctx context.Context, pool []*model.Member) {
	if err := ScanPoolProtectedCache.Set(ctx, scanPoolKey, pool); err != nil {
		logger.Logger.Warn("Failed to write scan pool cache", zap.Error(err))
	}
}

// InvalidateScanPool 成员或参考照片变更后使候选池缓存失效
func InvalidateScanPool(ctx context.Context) error {
	return ScanPoolProtectedCache.Delete(ctx, scanPoolKey)
}

// GetMember 按对外 ID 读取缓存的成员
// 第二个返回值表示缓存是否命中；命中但成员为 nil 表示缓存过"不存在"
func GetMember(ctx context.Context, publicID int64) (*model.Member, bool) {
	var member model.Member

	hit, err := MemberProtectedCache.Get(ctx, strconv.FormatInt(publicID, 10), &member)
	if err != nil {
		logger.Logger.Warn("Failed to read member cache",
			zap.Int64("member_id", publicID),
			zap.Error(err),
		)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	if member.ID == 0 {
		// 空值命中，成员确实不存在
		return nil, true
	}

	return &member, true
}

// SetMember 写入成员缓存；member 传 nil 时缓存空值，挡住不存在 ID 的穿透
func SetMember(ctx context.Context, publicID int64, member *model.Member) {
	var value interface{}
	if member != nil {
		value = member
	}
	if err := MemberProtectedCache.Set(ctx, strconv.FormatInt(publicID, 10), value); err != nil {
		logger.Logger.Warn("Failed to write member cache",
			zap.Int64("member_id", publicID),
			zap.Error(err),
		)
	}
}
