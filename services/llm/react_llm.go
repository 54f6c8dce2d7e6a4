package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms/ollama"
	lctools "github.com/tmc/langchaingo/tools"
)

// ReactClient drives the decision loop through a ReAct agent backed by a
// local Ollama model. Used when no tool-calling API is available.
type ReactClient struct {
	llm   *ollama.LLM
	model string
}

func NewReactClient() (*ReactClient, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	model := os.Getenv("OLLAMA_MODEL")
	if baseURL == "" {
		baseURL = "http://ollama:11434"
		slog.Warn("OLLAMA_BASE_URL not set, defaulting to http://ollama:11434")
	}
	if model == "" {
		model = "llama3.2"
		slog.Warn("OLLAMA_MODEL not set, defaulting to llama3.2")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Ollama model: %w", err)
	}
	slog.Info("Initializing Ollama ReAct client", "base_url", baseURL, "model", model)
	return &ReactClient{llm: llm, model: model}, nil
}

// Model returns the configured model identifier.
func (r *ReactClient) Model() string { return r.model }

// reactTool adapts a WeatherTool to the langchaingo tool interface. ReAct
// models sometimes quote or pad the action input, so it is cleaned before
// the tool sees it.
type reactTool struct {
	inner WeatherTool
}

func (t reactTool) Name() string        { return t.inner.Name() }
func (t reactTool) Description() string { return t.inner.Description() }

func (t reactTool) Call(ctx context.Context, input string) (string, error) {
	city := strings.TrimSpace(strings.Trim(strings.TrimSpace(input), `"'`))
	return t.inner.Call(ctx, city)
}

// Run implements DecisionClient. The executor enforces the same step bound
// as the tool-calling loop.
func (r *ReactClient) Run(ctx context.Context, query string, tool WeatherTool) (*LoopResult, error) {
	slog.Debug("Running ReAct decision loop", "model", r.model)
	executor, err := agents.Initialize(
		r.llm,
		[]lctools.Tool{reactTool{inner: tool}},
		agents.ZeroShotReactDescription,
		agents.WithMaxIterations(maxLoopSteps),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ReAct agent: %w", err)
	}
	answer, err := chains.Run(ctx, executor, query)
	if err != nil {
		slog.Error("ReAct agent run failed", "error", err)
		return nil, fmt.Errorf("ReAct agent run failed: %w", err)
	}
	return &LoopResult{Answer: answer}, nil
}
