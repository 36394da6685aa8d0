// Package report turns aggregated session results into a natural-language
// summary for the teacher. Generation goes through an OpenAI-compatible chat
// endpoint when configured and degrades to a deterministic local report when
// it is not.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"classquiz-service/internal/domain"
)

// Generator produces a free-text report from aggregated results.
type Generator interface {
	Generate(ctx context.Context, results domain.AggregatedResults) (string, error)
}

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
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

func (c *Client) Generate(ctx context.Context, results domain.AggregatedResults) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful educational consultant who provides actionable insights for teachers."},
			{Role: "user", Content: buildPrompt(results)},
		},
		MaxTokens:   800,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildPrompt(results domain.AggregatedResults) string {
	var sb strings.Builder
	sb.WriteString("You are an educational consultant analyzing quiz results for a class.\n")
	sb.WriteString("Based on the following data, provide a brief pedagogical report with actionable recommendations.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n", results.Topic)
	fmt.Fprintf(&sb, "Subtopic: %s\n", results.Subtopic)
	fmt.Fprintf(&sb, "Number of Participants: %d\n", results.ParticipantCount)
	fmt.Fprintf(&sb, "Overall Success Rate: %.1f%%\n\n", results.OverallSuccessRate)
	sb.WriteString("Performance by Skill Area:\n")
	for _, skill := range results.SkillBreakdown {
		fmt.Fprintf(&sb, "- %s: %.1f%% success rate (%d/%d correct)\n",
			skill.SkillTag, skill.SuccessRate, skill.CorrectAnswers, skill.TotalAnswers)
	}
	sb.WriteString("\nPlease provide:\n")
	sb.WriteString("1. A brief summary of class performance (2-3 sentences)\n")
	sb.WriteString("2. Identify which skill areas need the most attention\n")
	sb.WriteString("3. Provide 2-3 specific teaching recommendations for the next lesson\n")
	sb.WriteString("4. Suggest any additional resources or activities that could help\n\n")
	sb.WriteString("Keep the response concise and actionable for a teacher to use immediately.\n")
	sb.WriteString("Format the response in a clear, professional manner.")
	return sb.String()
}

// Reporter wraps the client with the local fallback so report generation is
// never fatal to the caller.
type Reporter struct {
	client *Client
}

func NewReporter(client *Client) *Reporter {
	return &Reporter{client: client}
}

func (r *Reporter) Generate(ctx context.Context, results domain.AggregatedResults) (string, error) {
	if r.client.Configured() {
		text, err := r.client.Generate(ctx, results)
		if err == nil {
			return text, nil
		}
		log.Printf("report generation failed, using fallback: %v", err)
	}
	return FallbackReport(results), nil
}
