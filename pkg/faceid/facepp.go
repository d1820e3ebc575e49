package faceid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FaceTrack/config"
)

// FaceppClient 基于 Face++ Compare API 的实现
// https://api-cn.faceplusplus.com/facepp/v3/compare
type FaceppClient struct {
	endpoint  string
	apiKey    string
	apiSecret string
	httpc     *http.Client
}

// faceppResponse Compare 接口响应体（只取需要的字段）
type faceppResponse struct {
	Confidence float64            `json:"confidence"`
	Thresholds map[string]float64 `json:"thresholds"`
	ErrorMsg   string             `json:"error_message"`
}

func NewFaceppClient() (*FaceppClient, error) {
	cfg := config.Cfg

	if cfg.FaceAPIKey == "" || cfg.FaceAPISecret == "" {
		return nil, fmt.Errorf("face api key/secret not configured")
	}

	timeout := time.Duration(cfg.FaceTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &FaceppClient{
		endpoint:  cfg.FaceAPIEndpoint,
		apiKey:    cfg.FaceAPIKey,
		apiSecret: cfg.FaceAPISecret,
		httpc:     &http.Client{Timeout: timeout},
	}, nil
}

// Compare 调用 Compare 接口比对两张图片
func (c *FaceppClient) Compare(ctx context.Context, capturedURL, referenceURL string) (*CompareResult, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("api_secret", c.apiSecret)
	form.Set("image_url1", capturedURL)
	form.Set("image_url2", referenceURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build compare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compare request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read compare response: %w", err)
	}

	var parsed faceppResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode compare response: %w", err)
	}

	if parsed.ErrorMsg != "" {
		return nil, fmt.Errorf("compare api error: %s", parsed.ErrorMsg)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compare api returned status %d", resp.StatusCode)
	}

	// 推荐阈值取最严格档位（误识率 1e-5）
	suggested := parsed.Thresholds["1e-5"]

	return &CompareResult{
		Confidence:         parsed.Confidence,
		SuggestedThreshold: suggested,
	}, nil
}
