package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/havenlabs/haven/pkg/httputil"
	"github.com/havenlabs/haven/pkg/policy"
)

// Provider identifies the remote LLM backend.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
	ProviderGroq       Provider = "groq"
)

// RemoteConfig configures the remote scorer.
type RemoteConfig struct {
	Provider Provider
	APIKey   string // optional for Ollama
	Model    string
	BaseURL  string // optional override
}

// RemoteScorer asks an external LLM for per-topic scores. It is the most
// capable and slowest backend; the chain only reaches it when the local
// scorers are unavailable. Temperature is pinned to zero so repeated calls on
// the same page stay consistent.
type RemoteScorer struct {
	client   *http.Client
	provider Provider
	baseURL  string
	apiKey   string
	model    string
}

var _ policy.Scorer = (*RemoteScorer)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewRemoteScorer creates the scorer for the configured provider.
func NewRemoteScorer(cfg RemoteConfig) *RemoteScorer {
	if cfg.Model == "" {
		if cfg.Provider == ProviderOllama {
			cfg.Model = "qwen2.5:7b"
		} else {
			cfg.Model = "meta-llama/llama-3.1-8b-instruct"
		}
	}

	var baseURL string
	switch cfg.Provider {
	case ProviderOllama:
		baseURL = "http://localhost:11434/v1"
	case ProviderGroq:
		baseURL = "https://api.groq.com/openai/v1"
	case ProviderOpenRouter:
		fallthrough
	default:
		baseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	return &RemoteScorer{
		client:   httputil.Client(httputil.TierSlow),
		provider: cfg.Provider,
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
	}
}

const remoteSystemPrompt = `You are a content safety rater for a parental
control system. Rate how strongly the INPUT page text matches each requested
category, on a 0.0-1.0 scale.

Rate the page's own register, not topic mentions alone: an encyclopedia
article about gambling is a weak match, a casino landing page is a strong
match. A page soliciting the reader (sign up, buy, send a photo, keep a
secret) is always a strong match for its category.

Respond with a single JSON object mapping each requested category name to a
number. No prose, no markdown fences.`

// Score sends one rating request and parses the JSON object it returns.
func (r *RemoteScorer) Score(ctx context.Context, text string, labels []policy.Topic, _ policy.PageContext) (map[policy.Topic]float64, error) {
	if r.provider != ProviderOllama && r.apiKey == "" {
		return nil, fmt.Errorf("API key not configured for %s", r.provider)
	}
	if len(labels) == 0 {
		return map[policy.Topic]float64{}, nil
	}

	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	userPrompt := fmt.Sprintf("Categories: %s\n\nINPUT:\n%s", strings.Join(names, ", "), text)

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: remoteSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring request returned %d", resp.StatusCode)
	}

	raw, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	return parseScoreJSON(cr.Choices[0].Message.Content, labels)
}

// parseScoreJSON extracts the score object from a model reply, tolerating
// markdown fences and surrounding prose. Scores are clamped to [0,1] and
// unrequested keys dropped.
func parseScoreJSON(content string, labels []policy.Topic) (map[policy.Topic]float64, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var parsed map[string]float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decoding score object: %w", err)
	}

	scores := make(map[policy.Topic]float64, len(labels))
	for _, l := range labels {
		s := parsed[string(l)]
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		scores[l] = s
	}
	return scores, nil
}
