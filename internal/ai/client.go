// Package ai wraps the OpenAI chat API for conversation replies, quiz
// question generation, and doubt solving.
package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"studybot/internal/models"
)

const systemPrompt = `You are Anuj, a friendly study assistant for Indian students.
Reply in a natural mix of Hindi and English (Hinglish) when the user does.
Be concise, encouraging, and accurate. When asked academic questions, show
the key steps of the solution, not just the answer.`

// Client calls OpenAI on behalf of the bot
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates an OpenAI client for the given model
func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	return &Client{
		api:    openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Reply generates a chat response for the message, with the recent history
// as conversation context
func (c *Client) Reply(ctx context.Context, message string, history []models.Conversation) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Sender == models.SenderBot {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Message,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	return c.complete(ctx, messages, 0.7)
}

// GenerateQuestions asks the model for MCQ questions over a text chunk.
// The response is expected to be a JSON array of question objects.
func (c *Client) GenerateQuestions(ctx context.Context, text string, count int, subject string) (string, error) {
	prompt := fmt.Sprintf(`Generate exactly %d multiple choice questions from the following %s study material.

Return ONLY a JSON array, no other text. Each element must have this shape:
{
  "question": "the question text",
  "options": ["option 1", "option 2", "option 3", "option 4"],
  "correct_answer": "A",
  "explanation": "why this answer is correct",
  "difficulty": "easy|medium|hard"
}

"correct_answer" must be one of A, B, C, D and refer to the option at that
position. Questions must be answerable from the material alone.

Material:
%s`, count, subject, text)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are a quiz generator. You output only valid JSON."},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	return c.complete(ctx, messages, 0.3)
}

// SolveDoubt explains a problem extracted from a student's photo. The OCR
// text may be noisy, so the model is told to reconstruct the question first.
func (c *Client) SolveDoubt(ctx context.Context, ocrText string) (string, error) {
	prompt := fmt.Sprintf(`A student photographed a problem. OCR extracted this text,
which may contain recognition errors:

%s

First reconstruct what the question most likely is, then solve it step by
step. Keep the explanation short and clear, suitable for a school student.`, ocrText)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	return c.complete(ctx, messages, 0.4)
}

// DescribeImage asks a vision-capable model what a doubt image shows.
// Used as a fallback when OCR finds no readable text.
func (c *Client) DescribeImage(ctx context.Context, imageData []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(imageData)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "This is a photo of a study problem. State the question it contains and solve it step by step.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
		MaxTokens: 800,
	})
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision request returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	c.logger.Debug("Chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
