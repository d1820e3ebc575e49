package service

import (
	"errors"
	"testing"

	"FaceTrack/internal/model"
	pkgerrors "FaceTrack/pkg/errors"
)

func TestResolveEffectivePolicyGroupOverrides(t *testing.T) {
	member := &model.Member{
		Department: &model.Department{
			Policy: model.LocationPolicy{
				Location:  "112.90,28.20",
				Radius:    500,
				StartTime: "09:00",
				EndTime:   "17:00",
			},
		},
		Group: &model.Group{
			Policy: model.LocationPolicy{
				Location:  "113.00,28.30",
				Radius:    200,
				StartTime: "10:00",
				// EndTime 留空：整体覆盖意味着部门的 17:00 不得渗入
			},
		},
	}

	got, err := ResolveEffectivePolicy(member)
	if err != nil {
		t.Fatalf("ResolveEffectivePolicy failed: %v", err)
	}

	if got.Source != PolicySourceGroup {
		t.Fatalf("source = %s, want group", got.Source)
	}
	if got.Location != "113.00,28.30" || got.Radius != 200 || got.StartTime != "10:00" {
		t.Fatalf("group policy not applied wholesale: %+v", got)
	}
	if got.EndTime != "" {
		t.Fatalf("field-level merge happened: end_time = %q, want empty", got.EndTime)
	}
}

func TestResolveEffectivePolicyDepartmentFallback(t *testing.T) {
	member := &model.Member{
		Department: &model.Department{
			Policy: model.LocationPolicy{
				Location:  "112.90,28.20",
				Radius:    500,
				StartTime: "09:00",
				EndTime:   "17:00",
			},
		},
		Group: &model.Group{
			// 小组存在但未配置坐标：整份策略回退到部门
			Policy: model.LocationPolicy{Radius: 100, StartTime: "10:00"},
		},
	}

	got, err := ResolveEffectivePolicy(member)
	if err != nil {
		t.Fatalf("ResolveEffectivePolicy failed: %v", err)
	}

	if got.Source != PolicySourceDepartment {
		t.Fatalf("source = %s, want department", got.Source)
	}
	if got.Radius != 500 || got.StartTime != "09:00" || got.EndTime != "17:00" {
		t.Fatalf("department fallback not wholesale: %+v", got)
	}
}

func TestResolveEffectivePolicyUnconfigured(t *testing.T) {
	tests := []struct {
		name   string
		member *model.Member
	}{
		{"no membership", &model.Member{}},
		{"department without location", &model.Member{
			Department: &model.Department{Policy: model.LocationPolicy{Radius: 500}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveEffectivePolicy(tt.member)
			if !errors.Is(err, pkgerrors.PolicyNotConfigured) {
				t.Fatalf("err = %v, want PolicyNotConfigured", err)
			}
		})
	}
}
