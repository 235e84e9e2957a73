package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"productstudio/internal/domain"
	"productstudio/internal/infra"
	"productstudio/internal/metrics"
)

const (
	DefaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	DefaultAnalysisModel = "gemini-2.5-flash"
	DefaultProModel      = "gemini-2.5-pro"
	DefaultImageModel    = "gemini-2.5-flash-image"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey        string
	BaseURL       string
	AnalysisModel string
	ProModel      string
	ImageModel    string
	HTTPClient    *http.Client
	Logger        *infra.Logger
}

// Client talks to the Gemini generateContent endpoint. Without an API key it
// runs in synthetic mode and returns deterministic local results, which keeps
// the whole pipeline usable in development and CI.
type Client struct {
	apiKey        string
	baseURL       string
	analysisModel string
	proModel      string
	imageModel    string
	httpClient    *http.Client
	logger        *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       firstNonEmpty(strings.TrimRight(opts.BaseURL, "/"), DefaultBaseURL),
		analysisModel: firstNonEmpty(opts.AnalysisModel, DefaultAnalysisModel),
		proModel:      firstNonEmpty(opts.ProModel, DefaultProModel),
		imageModel:    firstNonEmpty(opts.ImageModel, DefaultImageModel),
		httpClient:    client,
		logger:        logger,
	}
}

// Synthetic reports whether the client runs without an API key.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// AnalysisModel resolves the model used for analysis at the given tier.
func (c *Client) AnalysisModel(tier domain.ModelTier) string {
	if tier == domain.ModelPro {
		return c.proModel
	}
	return c.analysisModel
}

// ImageModel returns the image generation model. Every tier shares it.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// Info describes the configured provider without leaking the key.
type Info struct {
	Provider         string   `json:"provider"`
	Endpoint         string   `json:"endpoint"`
	APIKeyConfigured bool     `json:"apiKeyConfigured"`
	APIKeyPrefix     string   `json:"apiKeyPrefix"`
	Synthetic        bool     `json:"synthetic"`
	AnalysisModels   []string `json:"analysisModels"`
	ImageModels      []string `json:"imageModels"`
}

// Info returns the provider description shown by the info endpoint.
func (c *Client) Info() Info {
	prefix := "Not configured"
	if c.apiKey != "" {
		prefix = c.apiKey[:min(10, len(c.apiKey))] + "..."
	}
	endpoint := c.baseURL
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		endpoint = u.Scheme + "://" + u.Host
	}
	return Info{
		Provider:         "Google Generative AI",
		Endpoint:         endpoint,
		APIKeyConfigured: c.apiKey != "",
		APIKeyPrefix:     prefix,
		Synthetic:        c.Synthetic(),
		AnalysisModels:   []string{c.analysisModel, c.proModel},
		ImageModels:      []string{c.imageModel},
	}
}

// AnalysisRequest is the input of one analysis call.
type AnalysisRequest struct {
	Images      []domain.Image
	ProductName string
	Description string
	Prompt      string
	Model       domain.ModelTier
}

// AnalyzeProduct sends the reference images and prompt to the analysis model
// and parses the structured result. It does not retry.
func (c *Client) AnalyzeProduct(ctx context.Context, req AnalysisRequest) (domain.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnalysisResult{}, err
	}
	if c.Synthetic() {
		return syntheticAnalysis(req), nil
	}

	model := c.AnalysisModel(req.Model)
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: append(imageParts(req.Images), part{Text: req.Prompt})}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
		},
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, "analyze", model, payload, &resp); err != nil {
		return domain.AnalysisResult{}, err
	}
	cand, err := firstCandidate(resp)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := checkFinish(cand, "analysis"); err != nil {
		return domain.AnalysisResult{}, err
	}

	text := cand.text()
	if strings.TrimSpace(text) == "" {
		return domain.AnalysisResult{}, domain.ErrEmptyResponse
	}
	result, err := ParseAnalysis(text)
	if err != nil {
		c.logger.Warn().Str("model", model).Str("snippet", truncate(text, 500)).Msg("genai: unparseable analysis response")
		return domain.AnalysisResult{}, err
	}
	c.logger.Debug().Str("model", model).Int("titles", len(result.SEO.Titles)).Msg("genai: analysis complete")
	return result, nil
}

// ImageRequest is the input of one image generation call.
type ImageRequest struct {
	Prompt     string
	References []domain.Image
}

// GenerateImage asks the image model for one image. A response without an
// inline image part fails with domain.ErrNoImageFound.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}
	if c.Synthetic() {
		return c.syntheticImage(req), nil
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: append(imageParts(req.References), part{Text: req.Prompt})}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, "generate_image", c.imageModel, payload, &resp); err != nil {
		return domain.Image{}, err
	}
	cand, err := firstCandidate(resp)
	if err != nil {
		return domain.Image{}, err
	}
	if err := checkFinish(cand, "image generation"); err != nil {
		return domain.Image{}, err
	}
	if len(cand.Content.Parts) == 0 {
		return domain.Image{}, fmt.Errorf("%w: no parts in api response", domain.ErrNoImageFound)
	}
	for _, p := range cand.Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return domain.Image{
				MimeType: firstNonEmpty(p.InlineData.MimeType, "image/png"),
				Data:     p.InlineData.Data,
			}, nil
		}
	}
	c.logger.Warn().Str("model", c.imageModel).Str("text", truncate(cand.text(), 300)).Msg("genai: image response carried no inline data")
	return domain.Image{}, fmt.Errorf("%w: no inlineData in response parts", domain.ErrNoImageFound)
}

func (c *Client) invoke(ctx context.Context, operation, model string, payload any, out any) error {
	start := time.Now()
	defer func() {
		metrics.ExternalCallLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.Status)
	}
	return fmt.Sprintf("gemini status %d: %s", e.Status, e.Message)
}

// StatusCode exposes the HTTP status for error classification.
func (e *APIError) StatusCode() int { return e.Status }

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var env errorResponse
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Code = env.Error.Status
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

func firstCandidate(resp generateContentResponse) (candidate, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return candidate{}, fmt.Errorf("%w: prompt blocked: %s", domain.ErrContentBlocked, resp.PromptFeedback.BlockReason)
		}
		return candidate{}, fmt.Errorf("no candidates in api response")
	}
	return resp.Candidates[0], nil
}

func checkFinish(c candidate, stage string) error {
	if c.FinishReason == "" || c.FinishReason == "STOP" {
		return nil
	}
	var blocked []string
	for _, r := range c.SafetyRatings {
		if r.Probability == "HIGH" || r.Probability == "MEDIUM" {
			blocked = append(blocked, r.Category)
		}
	}
	if len(blocked) > 0 {
		return fmt.Errorf("%w due to safety concerns: %s", domain.ErrContentBlocked, strings.Join(blocked, ", "))
	}
	return fmt.Errorf("%w: %s stopped: %s", domain.ErrContentBlocked, stage, c.FinishReason)
}

func imageParts(images []domain.Image) []part {
	parts := make([]part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data}})
	}
	return parts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
