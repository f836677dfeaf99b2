package roast

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"go.uber.org/zap"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

var errNoAPIKey = errors.New("roast api key not configured")

// Provider produces a short roast for a late participant. Implementations
// must always return usable text; degraded modes fall back internally.
type Provider interface {
	Roast(ctx context.Context, memberName, gameName string, penaltyAmount int) string
}

// fallbackRoasts is the fixed local phrase set used when the remote call is
// unavailable or fails.
var fallbackRoasts = []string{
	"Late again. The penalty jar says thanks.",
	"The squad showed up. The clock showed up. You didn't.",
	"Fashionably late is still late. Pay up.",
	"The lobby filled up faster than your excuses.",
	"Punctuality: zero. Debt: climbing.",
	"Your teammates aged waiting for you.",
}

var pickRandomInt = secureRandomInt

func secureRandomInt(max int) (int, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// Fallback returns a uniformly random phrase from the local set.
func Fallback() string {
	idx, err := pickRandomInt(len(fallbackRoasts))
	if err != nil {
		// crypto/rand failing is practically unreachable; degrade to the
		// first phrase rather than return nothing.
		return fallbackRoasts[0]
	}
	return fallbackRoasts[idx]
}

// GeminiProvider calls the Gemini generateContent endpoint once per roast,
// bounded by the client timeout. After the first remote failure in the
// process lifetime the provider stays degraded and serves only fallbacks.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	degraded bool
}

// NewGeminiProvider builds a provider. An empty apiKey yields a provider that
// is degraded from the start.
func NewGeminiProvider(apiKey, model string, timeout time.Duration) *GeminiProvider {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	p := &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
	if strings.TrimSpace(apiKey) == "" {
		p.degraded = true
		logger.Warn("Roast API key not configured, using local fallback roasts only")
	}
	return p
}

// Roast attempts the remote call, degrading to the local fallback set on any
// failure. Never returns an empty string.
func (p *GeminiProvider) Roast(ctx context.Context, memberName, gameName string, penaltyAmount int) string {
	p.mu.Lock()
	degraded := p.degraded
	p.mu.Unlock()

	if degraded {
		return Fallback()
	}

	text, err := p.generate(ctx, memberName, gameName, penaltyAmount)
	if err != nil {
		p.mu.Lock()
		p.degraded = true
		p.mu.Unlock()
		logger.Warn("Remote roast generation failed, degrading to fallback for this session",
			zap.Error(err), zap.String("member", memberName))
		return Fallback()
	}
	return text
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) generate(ctx context.Context, memberName, gameName string, penaltyAmount int) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", errNoAPIKey
	}

	prompt := fmt.Sprintf(
		"Player %q was late for a scheduled %q session and now owes %d to the squad. Write one short, humorous roast about it. Reply with the roast only.",
		memberName, gameName, penaltyAmount,
	)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini api error: status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", err
	}

	text := extractCandidateText(parsed)
	if text == "" {
		return "", fmt.Errorf("no roast returned")
	}
	return text, nil
}

func extractCandidateText(parsed geminiResponse) string {
	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return strings.TrimSpace(part.Text)
			}
		}
	}
	return ""
}
