package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// responder produces the assistant's next chat message from the
// conversation so far (oldest first, ending with the user's message).
type responder interface {
	generate(ctx context.Context, history []chatMessage) (string, error)
}

/* ─── Canned replies ─────────────────────────────────────────────────── */

var cannedReplies = []string{
	"Thank you for sharing that with me. How does it feel to put it into words?",
	"That sounds like a lot to carry. What would help you feel a little lighter today?",
	"It's okay to feel this way. Would a short breathing exercise help right now?",
	"I hear you. What's one small thing you could do for yourself this afternoon?",
	"You're doing better than you think. What went well for you today?",
	"Noticing how you feel is an important step. Have you tried writing about it in your journal?",
	"Taking a moment to pause can make a real difference. Want to try a few minutes of mindfulness?",
}

// cannedResponder picks a reply uniformly at random. It is the default when
// no model is configured.
type cannedResponder struct {
	replies []string
	pick    func(n int) int
}

func newCannedResponder() *cannedResponder {
	return &cannedResponder{replies: cannedReplies, pick: rand.IntN}
}

func (r *cannedResponder) generate(context.Context, []chatMessage) (string, error) {
	return r.replies[r.pick(len(r.replies))], nil
}

/* ─── OpenAI ─────────────────────────────────────────────────────────── */

const companionSystemPrompt = `You are a warm, supportive wellness companion inside a mood and habit tracking app.
Reply in two to four sentences. Acknowledge how the user feels, then offer one gentle, practical suggestion
(journaling, a breathing exercise, a short walk, rest). You are not a therapist: if the user mentions self-harm
or a crisis, encourage them to contact local emergency services or a crisis line.`

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

// openAIResponder asks an OpenAI-compatible chat completions endpoint.
type openAIResponder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func newOpenAIResponder(cfg config) *openAIResponder {
	return &openAIResponder{
		baseURL: cfg.OpenAIBaseURL,
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *openAIResponder) generate(ctx context.Context, history []chatMessage) (string, error) {
	messages := make([]openAIMessage, 0, len(history)+1)
	messages = append(messages, openAIMessage{Role: "system", Content: companionSystemPrompt})
	for _, m := range history {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Message})
	}
	return callOpenAI(ctx, r.client, r.baseURL, r.apiKey, openAIRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: 0.7,
	})
}

// callOpenAI sends a chat completions request and returns the content string
// from the first choice. Uses raw net/http to avoid pulling in the OpenAI SDK.
func callOpenAI(ctx context.Context, client *http.Client, baseURL, apiKey string, reqBody openAIRequest) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	// Extract choices[0].message.content
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}
