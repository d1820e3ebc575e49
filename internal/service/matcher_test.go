package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"FaceTrack/internal/model"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/faceid"
)

func fixedThreshold(v float64) func(*faceid.CompareResult) float64 {
	return func(*faceid.CompareResult) float64 { return v }
}

func poolOf(avatars ...string) []*model.Member {
	pool := make([]*model.Member, 0, len(avatars))
	for i, url := range avatars {
		pool = append(pool, &model.Member{PublicID: int64(i + 1), AvatarURL: url})
	}
	return pool
}

func TestMatchFirstOverThresholdWins(t *testing.T) {
	mock := faceid.NewMockClient()
	mock.Scores["ref1"] = 40
	mock.Scores["ref2"] = 85 // 唯一过阈值的候选
	mock.Scores["ref3"] = 95 // 更高分，但永远不该被评估

	m := NewMatcher(mock, fixedThreshold(70), zap.NewNop())

	got, err := m.Match(context.Background(), "captured", poolOf("ref1", "ref2", "ref3"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got == nil || got.Member.PublicID != 2 {
		t.Fatalf("Match = %+v, want member 2", got)
	}
	if got.Confidence != 85 {
		t.Fatalf("confidence = %v, want 85", got.Confidence)
	}

	// 命中即停：第三个候选不应产生比对调用
	if n := mock.CallCount(); n != 2 {
		t.Fatalf("comparison calls = %d, want 2", n)
	}
}

func TestMatchSkipsFailedCandidate(t *testing.T) {
	mock := faceid.NewMockClient()
	mock.FailURLs["ref1"] = true
	mock.Scores["ref2"] = 90

	m := NewMatcher(mock, fixedThreshold(70), zap.NewNop())

	got, err := m.Match(context.Background(), "captured", poolOf("ref1", "ref2"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got == nil || got.Member.PublicID != 2 {
		t.Fatalf("failed candidate not skipped: %+v", got)
	}
}

func TestMatchNoMatch(t *testing.T) {
	mock := faceid.NewMockClient()
	mock.Scores["ref1"] = 10
	mock.Scores["ref2"] = 69.9

	m := NewMatcher(mock, fixedThreshold(70), zap.NewNop())

	got, err := m.Match(context.Background(), "captured", poolOf("ref1", "ref2"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Match = %+v, want no match", got)
	}
}

func TestMatchAllCallsFailed(t *testing.T) {
	mock := faceid.NewMockClient()
	mock.FailURLs["ref1"] = true
	mock.FailURLs["ref2"] = true

	m := NewMatcher(mock, fixedThreshold(70), zap.NewNop())

	_, err := m.Match(context.Background(), "captured", poolOf("ref1", "ref2"))
	if !errors.Is(err, pkgerrors.FaceServiceDown) {
		t.Fatalf("err = %v, want FaceServiceDown", err)
	}
}

func TestMatchEmptyPool(t *testing.T) {
	m := NewMatcher(faceid.NewMockClient(), fixedThreshold(70), zap.NewNop())

	got, err := m.Match(context.Background(), "captured", nil)
	if err != nil || got != nil {
		t.Fatalf("empty pool: got %+v, err %v", got, err)
	}
}

func TestMatchSuggestedThreshold(t *testing.T) {
	mock := faceid.NewMockClient()
	mock.Scores["ref1"] = 75
	mock.Suggested["ref1"] = 80 // 推荐阈值高于评分，不应命中

	// suggested 模式：优先用服务端推荐阈值，缺失退回固定值
	threshold := func(r *faceid.CompareResult) float64 {
		if r.SuggestedThreshold > 0 {
			return r.SuggestedThreshold
		}
		return 70
	}

	m := NewMatcher(mock, threshold, zap.NewNop())

	got, err := m.Match(context.Background(), "captured", poolOf("ref1"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got != nil {
		t.Fatalf("suggested threshold ignored: %+v", got)
	}
}
