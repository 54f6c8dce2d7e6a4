package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient drives the decision loop through native tool calling on an
// OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL") // e.g., "gpt-4o"
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
		slog.Info("Using OpenAI-compatible endpoint", "base_url", baseURL)
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Model returns the configured model identifier.
func (o *OpenAIClient) Model() string { return o.model }

func weatherToolDefinition(tool WeatherTool) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"city": {
						"type": "string",
						"description": "The name of the city, e.g. \"Seattle\", \"New York\", \"Tokyo\""
					}
				},
				"required": ["city"]
			}`),
		},
	}
}

// Run implements DecisionClient. Each iteration sends the conversation so
// far; a response with tool calls executes them and loops, a response
// without tool calls is the final answer. The loop is bounded by
// maxLoopSteps.
func (o *OpenAIClient) Run(ctx context.Context, query string, tool WeatherTool) (*LoopResult, error) {
	slog.Debug("Running tool-calling decision loop", "model", o.model)
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}
	toolDef := weatherToolDefinition(tool)

	for step := 0; step < maxLoopSteps; step++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    []openai.Tool{toolDef},
		})
		if err != nil {
			slog.Error("OpenAI API call failed", "error", err)
			return nil, fmt.Errorf("OpenAI API call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("OpenAI returned no choices")
		}
		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			slog.Debug("Decision loop finished", "steps", step+1,
				"finish_reason", resp.Choices[0].FinishReason)
			return &LoopResult{Answer: msg.Content}, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			var args struct {
				City string `json:"city"`
			}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				slog.Warn("Could not parse tool call arguments", "error", err)
			}
			observation, err := tool.Call(ctx, args.City)
			if err != nil {
				observation = "Error: " + err.Error()
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    observation,
			})
		}
	}
	return nil, fmt.Errorf("decision loop exceeded %d steps without a final answer", maxLoopSteps)
}
