package model

// LocationPolicy 位置策略，内嵌于部门和小组
// Location 持久化格式固定为 "longitude,latitude"（见 internal/geo）
// 小组策略一旦存在则整体覆盖部门策略，不做字段级合并
type LocationPolicy struct {
	Location  string  `gorm:"type:varchar(64)" json:"location"`          // "lng,lat"，空串表示未配置
	Radius    float64 `gorm:"not null;default:500" json:"radius"`        // 围栏半径，米
	StartTime string  `gorm:"type:varchar(8)" json:"start_time"`         // HH:MM，迟到判定边界
	EndTime   string  `gorm:"type:varchar(8)" json:"end_time"`           // HH:MM，早退判定边界
}

// Configured 策略是否配置了坐标
func (p LocationPolicy) Configured() bool {
	return p.Location != ""
}

// Department 部门模型
type Department struct {
	BaseModel
	Name   string         `gorm:"type:varchar(128);not null" json:"name"`
	Policy LocationPolicy `gorm:"embedded;embeddedPrefix:policy_" json:"policy"`
}

// TableName 指定表名
func (Department) TableName() string {
	return "departments"
}

// Group 小组模型，隶属于某个部门
type Group struct {
	BaseModel
	Name         string         `gorm:"type:varchar(128);not null" json:"name"`
	DepartmentID int64          `gorm:"not null;index" json:"department_id"`
	Policy       LocationPolicy `gorm:"embedded;embeddedPrefix:policy_" json:"policy"`
}

// TableName 指定表名
func (Group) TableName() string {
	return "groups"
}
