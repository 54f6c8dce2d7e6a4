package llm

import (
	"context"
	"log/slog"
	"os"
)

// Backend identifies the decision-loop capability resolved once at startup.
// The dispatcher branches on this enum instead of probing for availability
// at request time.
type Backend int

const (
	// BackendUnavailable means no decision backend is configured; only
	// direct tool dispatch is possible.
	BackendUnavailable Backend = iota
	// BackendToolCalling drives the loop through native tool calling on an
	// OpenAI-compatible chat completions API.
	BackendToolCalling
	// BackendReactLoop drives the loop through a ReAct agent against a
	// local Ollama model.
	BackendReactLoop
)

func (b Backend) String() string {
	switch b {
	case BackendToolCalling:
		return "openai"
	case BackendReactLoop:
		return "react"
	default:
		return "unavailable"
	}
}

// maxLoopSteps bounds every decision loop. A model stuck re-invoking the
// tool is cut off rather than allowed to spin.
const maxLoopSteps = 10

// systemPrompt mirrors the instruction the reference deployment uses to keep
// models from answering weather questions out of their training data.
const systemPrompt = "You have access to a get_weather tool. When users ask about weather, " +
	"call the get_weather tool ONCE with the city name, then provide a natural response " +
	"using the data returned. Do NOT call the tool multiple times and do NOT make up weather data."

// WeatherTool is the single tool a decision loop may invoke.
type WeatherTool interface {
	Name() string
	Description() string
	Call(ctx context.Context, city string) (string, error)
}

// LoopResult is the final outcome of one decision loop run.
type LoopResult struct {
	Answer string
}

// DecisionClient runs an LLM-mediated decision loop over one user query with
// one callable tool. Whether the tool actually ran is observed by the caller
// through its own tool wrapper, not reported here.
type DecisionClient interface {
	Run(ctx context.Context, query string, tool WeatherTool) (*LoopResult, error)
	Model() string
}

// ResolveBackend reads LLM_BACKEND_TYPE and constructs the matching client.
// Any configuration failure degrades to BackendUnavailable rather than
// aborting startup; the agent still serves direct mode.
func ResolveBackend() (Backend, DecisionClient) {
	backendType := os.Getenv("LLM_BACKEND_TYPE")
	switch backendType {
	case "openai":
		client, err := NewOpenAIClient()
		if err != nil {
			slog.Warn("OpenAI backend unavailable, falling back to direct mode", "error", err)
			return BackendUnavailable, nil
		}
		slog.Info("Using OpenAI tool-calling decision backend", "model", client.Model())
		return BackendToolCalling, client
	case "ollama":
		client, err := NewReactClient()
		if err != nil {
			slog.Warn("Ollama backend unavailable, falling back to direct mode", "error", err)
			return BackendUnavailable, nil
		}
		slog.Info("Using Ollama ReAct decision backend", "model", client.Model())
		return BackendReactLoop, client
	case "":
		slog.Info("LLM_BACKEND_TYPE not set, running in direct mode only")
	default:
		slog.Warn("Unknown LLM_BACKEND_TYPE, running in direct mode only", "value", backendType)
	}
	return BackendUnavailable, nil
}
