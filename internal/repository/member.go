package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"FaceTrack/internal/model"
)

var ErrNotFound = gorm.ErrRecordNotFound

// MemberRepo 成员数据访问
type MemberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// ListScanCandidates 识别候选池：启用参考照片的非管理员成员
// 按主键升序排列，顺序稳定是"池序优先"匹配语义的前提
func (r *MemberRepo) ListScanCandidates(ctx context.Context) ([]*model.Member, error) {
	var members []*model.Member

	err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("Group").
		Where("role <> ?", string(model.MemberRoleAdmin)).
		Where("avatar_url <> ''").
		Order("id ASC").
		Find(&members).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list scan candidates: %w", err)
	}

	return members, nil
}

// GetByPublicID 按对外 ID 查询成员（含部门/小组策略）
func (r *MemberRepo) GetByPublicID(ctx context.Context, publicID int64) (*model.Member, error) {
	var member model.Member

	err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("Group").
		Where("public_id = ?", publicID).
		First(&member).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query member %d: %w", publicID, err)
	}

	return &member, nil
}
