package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/draftcut-backend/internal/platform/envutil"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "Kwai-Kolors/Kolors"
	DefaultSize    = "960x1280"

	generationsPath = "/images/generations"
)

type ImageRequest struct {
	Prompt string
	Model  string
	Size   string
	N      int
}

// ImageResult is one generated image. URL is either a provider-hosted URL or,
// when the provider only returned base64, a data: URL carrying the bytes.
type ImageResult struct {
	URL           string
	RevisedPrompt string
}

// Provider is an OpenAI-compatible image generation endpoint.
type Provider interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]ImageResult, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ConfigFromEnv reads the defaults applied when a credential carries no base URL.
func ConfigFromEnv() Config {
	return Config{
		BaseURL: envutil.String("IMAGE_PROVIDER_BASE_URL", DefaultBaseURL),
		Timeout: envutil.Duration("IMAGE_PROVIDER_TIMEOUT", 120*time.Second),
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing image provider api key")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &client{
		log:        log.With("client", "ImageGenClient", "base_url", base),
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("image provider http %d: %s", e.StatusCode, e.Body)
}

type imagesGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

type imagesGenerationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	// Some compatible providers answer under "images" instead of "data".
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (c *client) GenerateImage(ctx context.Context, req ImageRequest) ([]ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("image prompt required")
	}
	body := imagesGenerationRequest{
		Model:  firstNonEmpty(req.Model, DefaultModel),
		Prompt: prompt,
		N:      req.N,
		Size:   firstNonEmpty(req.Size, DefaultSize),
	}
	if body.N <= 0 {
		body.N = 1
	}

	raw, err := c.doOnce(ctx, http.MethodPost, generationsPath, body)
	if err != nil {
		return nil, err
	}
	var resp imagesGenerationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}

	out := make([]ImageResult, 0, len(resp.Data)+len(resp.Images))
	for _, item := range resp.Data {
		u := strings.TrimSpace(item.URL)
		if u == "" && strings.TrimSpace(item.B64JSON) != "" {
			u = "data:image/png;base64," + strings.TrimSpace(item.B64JSON)
		}
		if u == "" {
			continue
		}
		out = append(out, ImageResult{URL: u, RevisedPrompt: strings.TrimSpace(item.RevisedPrompt)})
	}
	for _, item := range resp.Images {
		if u := strings.TrimSpace(item.URL); u != "" {
			out = append(out, ImageResult{URL: u})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no image returned")
	}
	return out, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	c.log.Debug("image provider call", "path", path, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, nil
}

func firstNonEmpty(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
