package queue

// AttendanceEventMessage 打卡事件消息，台账写入成功后发布
type AttendanceEventMessage struct {
	MessageID  string `json:"message_id"`
	MemberID   int64  `json:"member_id"`
	Action     string `json:"action"` // check-in / check-out
	Status     string `json:"status"`
	Date       string `json:"date"` // YYYY-MM-DD，组织时区
	OccurredAt string `json:"occurred_at"`
}
