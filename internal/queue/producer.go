package queue

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"FaceTrack/pkg/logger"
	"FaceTrack/storage/mq"
)

// PublishAttendanceEvent 发布打卡事件消息
func PublishAttendanceEvent(msg AttendanceEventMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}

	err := mq.PublishMessage(
		mq.AttendanceExchange,
		mq.RoutingKeyRecorded,
		msg,
	)

	if err != nil {
		logger.Logger.Error("Failed to publish attendance event",
			zap.String("message_id", msg.MessageID),
			zap.Int64("member_id", msg.MemberID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published attendance event",
		zap.String("message_id", msg.MessageID),
		zap.Int64("member_id", msg.MemberID),
		zap.String("action", msg.Action),
	)

	return nil
}
