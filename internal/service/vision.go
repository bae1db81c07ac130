package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mealscope/backend/config"
	"github.com/redis/go-redis/v9"
)

const visionSystemPrompt = `You are a nutrition analyst. Given a photo of a meal, respond only with JSON of this exact shape:
{
    "foods": [
        {"name": "Bacon", "portion": "2 strips", "container": "plate"}
    ],
    "flags": ["processed_meat", "fried_food"],
    "nutrition": {"calories": 350, "protein": 15, "carbs": 45, "fat": 12, "sodium": 800}
}

Flags must be chosen from: processed_meat, red_meat, fried_food, sugary_drink, high_sodium, ultra_processed, caffeine, alcohol, plastic, late_meal.
The nutrition fields must be numbers, not strings. List foods in order of prominence on the plate.`

// visionRequest is the chat-completions payload sent to the vision model.
type visionRequest struct {
	Model          string            `json:"model"`
	Messages       []visionMessage   `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type visionMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type visionContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

// VisionService is the RecognitionClient backed by a remote vision-capable
// chat-completions API.
type VisionService struct {
	apiKey   string
	apiURL   string
	model    string
	client   *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewVisionService creates a new VisionService instance. redisClient may be
// nil, in which case response caching is disabled.
func NewVisionService(cfg *config.Config, redisClient *redis.Client) (*VisionService, error) {
	if cfg.VisionAPIKey == "" {
		return nil, fmt.Errorf("VISION_API_KEY must be set")
	}

	return &VisionService{
		apiKey: cfg.VisionAPIKey,
		apiURL: cfg.VisionAPIURL,
		model:  "gpt-4o-mini",
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		redis:    redisClient,
		cacheTTL: 24 * time.Hour,
	}, nil
}

// Analyze sends the image to the vision model and validates the structured
// response. Identical images are served from the Redis cache when available.
func (s *VisionService) Analyze(ctx context.Context, imageBytes []byte, mimeType string) (*AnalysisResult, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrMalformedResponse)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	cacheKey := fmt.Sprintf("vision:analysis:%x", sha256.Sum256(imageBytes))
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageBytes))
	reqBody := visionRequest{
		Model: s.model,
		Messages: []visionMessage{
			{Role: "system", Content: visionSystemPrompt},
			{
				Role: "user",
				Content: []visionContentPart{
					{Type: "text", Text: "Identify the foods in this meal photo."},
					{Type: "image_url", ImageURL: &visionImageURL{URL: dataURI}},
				},
			},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.2,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrRecognitionNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[VisionService] API request failed with status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", ErrRecognitionNetwork, resp.StatusCode)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in API response", ErrMalformedResponse)
	}

	result, err := parseAnalysisResult(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, result)
	return result, nil
}

// parseAnalysisResult validates the model output against the expected shape.
// Anything that does not validate is a failure, never a partial result.
func parseAnalysisResult(content string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(result.Foods) == 0 {
		return nil, fmt.Errorf("%w: no foods identified", ErrMalformedResponse)
	}
	for _, f := range result.Foods {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("%w: food item with empty name", ErrMalformedResponse)
		}
	}
	if result.Flags == nil {
		result.Flags = []string{}
	}
	return &result, nil
}

// classifyTransportError maps an http.Client error to the timeout or network
// sentinel.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRecognitionTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRecognitionTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRecognitionTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRecognitionNetwork, err)
}

func (s *VisionService) cacheGet(ctx context.Context, key string) *AnalysisResult {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	log.Printf("[VisionService] Cache hit for %s", key)
	return &result
}

func (s *VisionService) cacheSet(ctx context.Context, key string, result *AnalysisResult) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		log.Printf("[VisionService] Failed to cache analysis: %v", err)
	}
}
