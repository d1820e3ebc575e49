package errors

import "fmt"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 扫描打卡模块错误。
// 注意：身份未命中和位置不在围栏内不属于错误码，它们是业务上的预期结果，
// 由 scan 接口以 200 + 结构化字段返回，调用端不需要做传输层错误处理。
var (
	InvalidScanRequest   = Definition{Code: "INVALID_SCAN_REQUEST", Message: "Invalid scan request"}
	ImageHostNotAllowed  = Definition{Code: "IMAGE_HOST_NOT_ALLOWED", Message: "Captured image host not in allow list"}
	MemberPoolEmpty      = Definition{Code: "MEMBER_POOL_EMPTY", Message: "No scannable members registered"}
	FaceServiceDown      = Definition{Code: "FACE_SERVICE_UNAVAILABLE", Message: "Face comparison service unavailable"}
	PolicyNotConfigured  = Definition{Code: "POLICY_NOT_CONFIGURED", Message: "No location policy configured for member"}
	LedgerBusy           = Definition{Code: "LEDGER_BUSY", Message: "Attendance record is being updated, retry shortly"}
	InvalidMemberID      = Definition{Code: "INVALID_MEMBER_ID", Message: "Invalid member ID format"}
	InvalidDate          = Definition{Code: "INVALID_DATE", Message: "Invalid date, expected YYYY-MM-DD"}
	MemberNotFound       = Definition{Code: "MEMBER_NOT_FOUND", Message: "Member not found"}
	AttendanceNotFound   = Definition{Code: "ATTENDANCE_NOT_FOUND", Message: "No attendance record for today"}
	ReconcileJobRunning  = Definition{Code: "RECONCILE_JOB_RUNNING", Message: "Reconciliation job already running"}
	TooManyRequests      = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, retry later"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidScanRequest.Code:  InvalidScanRequest,
	ImageHostNotAllowed.Code: ImageHostNotAllowed,
	MemberPoolEmpty.Code:     MemberPoolEmpty,
	FaceServiceDown.Code:     FaceServiceDown,
	PolicyNotConfigured.Code: PolicyNotConfigured,
	LedgerBusy.Code:          LedgerBusy,
	InvalidMemberID.Code:     InvalidMemberID,
	InvalidDate.Code:         InvalidDate,
	MemberNotFound.Code:      MemberNotFound,
	AttendanceNotFound.Code:  AttendanceNotFound,
	ReconcileJobRunning.Code: ReconcileJobRunning,
	TooManyRequests.Code:     TooManyRequests,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError 消费者侧的跳过信号：消息已被处理过，直接 Ack 不重投。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return fmt.Sprintf("skip message: %s", e.Reason)
}
