// Package api is the client for the ClickLit backend REST contract:
// CTR prediction, image generation, and the best-effort user-choice log.
// Every call carries a bounded timeout and a correlation ID; no call is
// ever retried automatically - a retry is always a user action.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"clicklit/internal/logging"
	"clicklit/internal/session"
)

const imageCacheSize = 32

// ImageSize is the only size the generation endpoint accepts.
const ImageSize = "1024x1024"

// Client talks to the ClickLit backend.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	// Generated image references keyed by prompt, so re-entering a screen
	// with the same prompt does not spend another generation call.
	imageCache *lru.Cache[string, []string]
}

// New returns a client for the given base URL. timeout bounds each
// request end to end.
func New(baseURL string, timeout time.Duration) *Client {
	cache, _ := lru.New[string, []string](imageCacheSize)
	return &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: timeout},
		imageCache: cache,
	}
}

// WithAPIKey attaches a bearer token to every request. An empty key is a
// no-op, which is the local-backend default.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = key
	return c
}

// PredictRequest is the merged target+product payload of /api/predict.
type PredictRequest = session.Product

type generateImagesRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generateImagesResponse struct {
	Images []string `json:"images"`
}

type generateCandidateImageRequest struct {
	MarketingText   string `json:"marketing_text"`
	ProductCategory string `json:"product_category"`
	TargetAudience  string `json:"target_audience"`
}

type generateCandidateImageResponse struct {
	ImageURL string `json:"image_url"`
}

type userChoiceRequest struct {
	LogID         string `json:"log_id"`
	UserFinalText string `json:"user_final_text"`
}

// post issues one JSON request and decodes a JSON response into out (out
// may be nil when the body is ignored).
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	reqID := uuid.NewString()
	logging.APIDebug("[req:%s] POST %s (%d bytes)", reqID, path, len(body))
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("[req:%s] POST %s failed: %v", reqID, path, err)
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := statusError(resp)
		logging.APIError("[req:%s] POST %s -> %d %s", reqID, path, se.Code, se.Detail)
		return se
	}

	logging.API("[req:%s] POST %s -> %d in %v", reqID, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Predict submits the merged target+product payload and returns the CTR
// prediction for all three candidates.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*session.Prediction, error) {
	var pred session.Prediction
	if err := c.post(ctx, "/api/predict", req, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// GenerateImages requests n images (1 or 3) at the fixed 1024x1024 size
// for a combined prompt. Results are cached by prompt for single-image
// requests issued again within the client's lifetime.
func (c *Client) GenerateImages(ctx context.Context, prompt string, n int) ([]string, error) {
	if n != 1 && n != 3 {
		return nil, fmt.Errorf("n must be 1 or 3, got %d", n)
	}

	cacheKey := fmt.Sprintf("%d|%s", n, prompt)
	if cached, ok := c.imageCache.Get(cacheKey); ok {
		logging.APIDebug("image cache hit for %d-image prompt", n)
		return cached, nil
	}

	var resp generateImagesResponse
	err := c.post(ctx, "/api/generate-images", generateImagesRequest{
		Prompt: prompt,
		N:      n,
		Size:   ImageSize,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("image generation returned no images")
	}

	c.imageCache.Add(cacheKey, resp.Images)
	return resp.Images, nil
}

// RegenerateImage requests one fresh image for a prompt, bypassing the
// cache, and replaces the cached single-image entry with the result.
func (c *Client) RegenerateImage(ctx context.Context, prompt string) (string, error) {
	var resp generateImagesResponse
	err := c.post(ctx, "/api/generate-images", generateImagesRequest{
		Prompt: prompt,
		N:      1,
		Size:   ImageSize,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Images) == 0 {
		return "", fmt.Errorf("image generation returned no images")
	}
	c.imageCache.Add(fmt.Sprintf("1|%s", prompt), resp.Images)
	return resp.Images[0], nil
}

// GenerateCandidateImage requests one image for a chosen candidate's copy,
// the product category, and the audience description.
func (c *Client) GenerateCandidateImage(ctx context.Context, marketingText, category, audience string) (string, error) {
	var resp generateCandidateImageResponse
	err := c.post(ctx, "/api/generate-image", generateCandidateImageRequest{
		MarketingText:   marketingText,
		ProductCategory: category,
		TargetAudience:  audience,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ImageURL == "" {
		return "", fmt.Errorf("image generation returned no image")
	}
	return resp.ImageURL, nil
}

// LogUserChoice reports the final chosen text for a prediction result.
// Callers treat failure as non-fatal; the response body is ignored.
func (c *Client) LogUserChoice(ctx context.Context, logID, finalText string) error {
	return c.post(ctx, "/api/user-choice", userChoiceRequest{
		LogID:         logID,
		UserFinalText: finalText,
	}, nil)
}
