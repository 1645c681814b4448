package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/transfer"
)

const geminiGenerateURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// AIService turns raw post text into platform-ready copy. It calls the Gemini
// API directly when a key is configured and falls back to the automation
// enhance webhook otherwise (or when the direct call fails).
type AIService interface {
	EnhanceContent(ctx context.Context, content string, platforms []string, userID string) (*transfer.Enhancement, error)
}

type aiService struct {
	geminiKey  string
	geminiURL  string
	enhanceURL string
	httpClient *http.Client
}

func NewAIService(cfg config.Config) AIService {
	return &aiService{
		geminiKey:  cfg.GeminiAPIKey,
		geminiURL:  geminiGenerateURL,
		enhanceURL: cfg.Webhooks.EnhanceURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *aiService) EnhanceContent(ctx context.Context, content string, platforms []string, userID string) (*transfer.Enhancement, error) {
	if s.geminiKey != "" {
		enhancement, err := s.enhanceWithGemini(ctx, content, platforms)
		if err == nil {
			return enhancement, nil
		}
		slog.Info("gemini enhancement failed, falling back to webhook", "error", err.Error())
	}

	return s.enhanceWithWebhook(ctx, content, platforms, userID)
}

func enhancePrompt(content string, platforms []string) string {
	return fmt.Sprintf(`You are an expert social media manager.
Please enhance the following content for %s.

Original Content: %q

Requirements:
- Professional yet engaging tone
- Optimized for visibility on specified platforms
- Include relevant hashtags
- Check for grammar and clarity

Return ONLY the enhanced content text, no conversational filler.`,
		strings.Join(platforms, " and "), content)
}

func (s *aiService) enhanceWithGemini(ctx context.Context, content string, platforms []string) (*transfer.Enhancement, error) {
	start := time.Now()

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": enhancePrompt(content, platforms)}}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.geminiURL+"?key="+s.geminiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: gemini status %d", ErrExternalService, resp.StatusCode)
	}

	var raw struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: gemini response: %v", ErrExternalService, err)
	}
	if len(raw.Candidates) == 0 || len(raw.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", ErrExternalService)
	}

	return &transfer.Enhancement{
		EnhancedContent:   strings.TrimSpace(raw.Candidates[0].Content.Parts[0].Text),
		Model:             "gemini-1.5-flash",
		EnhancementTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (s *aiService) enhanceWithWebhook(ctx context.Context, content string, platforms []string, userID string) (*transfer.Enhancement, error) {
	if s.enhanceURL == "" {
		return nil, fmt.Errorf("%w: no enhancement backend configured", ErrExternalService)
	}

	start := time.Now()

	payload, err := json.Marshal(map[string]interface{}{
		"content":   strings.TrimSpace(content),
		"platforms": platforms,
		"user_id":   userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.enhanceURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: enhancement webhook: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: enhancement webhook status %d", ErrExternalService, resp.StatusCode)
	}

	var raw struct {
		ImprovedContent string `json:"improved_content"`
		EnhancedContent string `json:"enhanced_content"`
		Model           string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: enhancement webhook response: %v", ErrExternalService, err)
	}

	enhanced := raw.ImprovedContent
	if enhanced == "" {
		enhanced = raw.EnhancedContent
	}
	if enhanced == "" {
		return nil, fmt.Errorf("%w: enhancement webhook returned no content", ErrExternalService)
	}

	model := raw.Model
	if model == "" {
		model = "gemini-n8n"
	}

	return &transfer.Enhancement{
		EnhancedContent:   enhanced,
		Model:             model,
		EnhancementTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
