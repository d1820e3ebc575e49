package dto

// ========== 扫描打卡相关 DTO ==========

// UserLocation 扫描端上报的 GPS 坐标
type UserLocation struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ScanRequest 扫描打卡请求
type ScanRequest struct {
	CapturedImageURL string       `json:"capturedImageUrl" validate:"required,url"`
	UserLocation     UserLocation `json:"userLocation"`
}

// ScanUser 响应中的成员标识
type ScanUser struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ScanResponse 扫描打卡响应
// 身份未命中和位置不匹配都是业务预期结果，同样走 200 + 本结构，
// 字段形状与扫描端约定死，不包统一信封
type ScanResponse struct {
	Match      bool      `json:"match"`
	User       *ScanUser `json:"user,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Action     string    `json:"action,omitempty"` // check-in / check-out
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// 扫描动作取值
const (
	ActionCheckIn  = "check-in"
	ActionCheckOut = "check-out"
)

// 结构化业务失败取值
const (
	ScanErrorUserNotFound     = "User not found"
	ScanErrorLocationMismatch = "Location mismatch"
)
