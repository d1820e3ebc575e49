package handler

import (
	"context"
	"net/url"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"

	"FaceTrack/config"
	"FaceTrack/internal/model/dto"
	"FaceTrack/internal/service"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/response"
)

var validate = validator.New()

// ProcessScan 扫描打卡
// POST /v1/attendance/scan
//
// 注意响应形状：识别未命中和位置不匹配同样返回 200，
// 由 match/error 字段区分，扫描端按字段渲染结果
func ProcessScan(ctx context.Context, c *app.RequestContext) {
	var req dto.ScanRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := validate.Struct(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	u, err := url.Parse(req.CapturedImageURL)
	if err != nil || !config.Cfg.ImageHostAllowed(u.Hostname()) {
		response.Error(ctx, c, pkgerrors.ImageHostNotAllowed)
		return
	}

	result, err := service.Scan().ProcessScan(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Raw(ctx, c, consts.StatusOK, result)
}
