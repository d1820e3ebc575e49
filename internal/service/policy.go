package service

import (
	"FaceTrack/internal/model"
	pkgerrors "FaceTrack/pkg/errors"
)

// PolicySource 生效策略的来源
type PolicySource string

const (
	PolicySourceGroup      PolicySource = "group"
	PolicySourceDepartment PolicySource = "department"
)

// EffectivePolicy 优先级解析后的生效策略
type EffectivePolicy struct {
	model.LocationPolicy
	Source PolicySource
}

// ResolveEffectivePolicy 解析成员的生效位置策略
//
// 优先级规则：小组策略配置了坐标则整体覆盖部门策略 —— 不做字段级合并，
// 小组缺坐标时整份策略回退到部门（包括时间窗口）。
// 成员既无小组也无部门策略坐标时返回 PolicyNotConfigured。
func ResolveEffectivePolicy(member *model.Member) (EffectivePolicy, error) {
	if member.Group != nil && member.Group.Policy.Configured() {
		return EffectivePolicy{
			LocationPolicy: member.Group.Policy,
			Source:         PolicySourceGroup,
		}, nil
	}

	if member.Department != nil && member.Department.Policy.Configured() {
		return EffectivePolicy{
			LocationPolicy: member.Department.Policy,
			Source:         PolicySourceDepartment,
		}, nil
	}

	return EffectivePolicy{}, pkgerrors.PolicyNotConfigured
}
