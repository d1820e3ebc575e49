package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"FaceTrack/internal/cache"
	"FaceTrack/pkg/errors"
	"FaceTrack/pkg/logger"
	"FaceTrack/storage/mq"
)

// StartAttendanceEventConsumer 启动打卡事件消费者
// 消费打卡事件并累加当日动作统计，消息级幂等依赖 redis 标记
func StartAttendanceEventConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg AttendanceEventMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal attendance event: %w", err)
		}

		processing, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理，可能重复累加但不丢消息
		} else if !processing {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		if err := cache.IncrDailyAction(ctx, msg.Date, msg.Action); err != nil {
			// 统计失败则取消标记，允许重试
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to update daily stats: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		logger.Logger.Info("Attendance event processed",
			zap.String("message_id", msg.MessageID),
			zap.Int64("member_id", msg.MemberID),
			zap.String("action", msg.Action),
			zap.String("status", msg.Status),
		)

		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.AttendanceQueue,
		ConsumerTag:   "facetrack-attendance-worker",
		PrefetchCount: 10,
		Handler:       handler,
	})
}
