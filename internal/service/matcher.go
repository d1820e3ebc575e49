package service

import (
	"context"

	"go.uber.org/zap"

	"FaceTrack/internal/model"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/faceid"
)

// MatchResult 识别命中结果
type MatchResult struct {
	Member     *model.Member
	Confidence float64
}

// MatcherService 身份识别：按候选池顺序逐一调用人脸比对
//
// 语义是"池序优先"：第一个评分严格高于接受阈值的候选胜出并立即停止扫描，
// 不做全池最优评分排名。候选池顺序因此是隐式优先级，必须稳定。
// 比对调用保持串行：改成并发扇出会把"池序优先"变成"最快响应优先"，
// 在多个成员参考照都可能命中时会改变结果。
type MatcherService struct {
	comparer  faceid.Client
	threshold func(*faceid.CompareResult) float64
	logger    *zap.Logger
}

func NewMatcher(comparer faceid.Client, threshold func(*faceid.CompareResult) float64, logger *zap.Logger) *MatcherService {
	return &MatcherService{
		comparer:  comparer,
		threshold: threshold,
		logger:    logger,
	}
}

// Match 在候选池中识别抓拍图片属于哪个成员
// 单个候选的比对调用失败记录日志后跳过；全池失败视为比对服务不可用。
// 无人命中返回 (nil, nil)。
func (s *MatcherService) Match(ctx context.Context, capturedURL string, pool []*model.Member) (*MatchResult, error) {
	if len(pool) == 0 {
		return nil, nil
	}

	failed := 0

	for _, candidate := range pool {
		result, err := s.comparer.Compare(ctx, capturedURL, candidate.AvatarURL)
		if err != nil {
			failed++
			s.logger.Warn("Face comparison call failed, skipping candidate",
				zap.Int64("member_id", candidate.PublicID),
				zap.Error(err),
			)
			continue
		}

		accept := s.threshold(result)
		if result.Confidence > accept {
			s.logger.Info("Face match accepted",
				zap.Int64("member_id", candidate.PublicID),
				zap.Float64("confidence", result.Confidence),
				zap.Float64("threshold", accept),
			)
			return &MatchResult{
				Member:     candidate,
				Confidence: result.Confidence,
			}, nil
		}
	}

	if failed == len(pool) {
		return nil, pkgerrors.FaceServiceDown
	}

	return nil, nil
}
