package model

// MemberRole 成员角色枚举
type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin" // 管理员不参与考勤
)

// Member 成员模型
// 一个成员最多属于一个部门和一个小组；小组如存在应属于同一部门
// （系统不强制，但策略优先级规则以此为前提）
type Member struct {
	BaseModel
	PublicID     int64      `gorm:"uniqueIndex;not null" json:"user_id"`
	FirstName    string     `gorm:"type:varchar(64);not null" json:"first_name"`
	LastName     string     `gorm:"type:varchar(64);not null" json:"last_name"`
	Role         MemberRole `gorm:"type:varchar(16);not null;default:'member';index" json:"role"`
	AvatarURL    string     `gorm:"type:text" json:"avatar_url"` // 参考照片，可更换；为空的成员不进入识别候选池
	DepartmentID *int64     `gorm:"index" json:"department_id,omitempty"`
	GroupID      *int64     `gorm:"index" json:"group_id,omitempty"`

	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Group      *Group      `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// TableName 指定表名
func (Member) TableName() string {
	return "members"
}

// FullName 展示用姓名
func (m *Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
