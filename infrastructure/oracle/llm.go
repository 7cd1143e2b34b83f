package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	domain "github.com/felixgeelhaar/agentsim/domain/oracle"
	"github.com/felixgeelhaar/agentsim/infrastructure/logging"
)

// ErrMalformedAnswer is returned when the backend reply is not the expected JSON.
var ErrMalformedAnswer = errors.New("malformed oracle answer")

// DefaultSystemPrompt instructs the backend how to answer.
const DefaultSystemPrompt = `You decide the next state of a simulated social media user.

The user has several valid next states. Pick exactly one of the listed candidates.

## Response Format

Respond ONLY with a JSON object:
{"target": "<state>", "reason": "<short reason>"}

The target MUST be one of the candidates, spelled exactly as listed.`

// LLMOracle asks a chat completion backend to pick a target.
type LLMOracle struct {
	provider     Provider
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
}

// LLMOracleConfig configures the LLM oracle.
type LLMOracleConfig struct {
	Provider     Provider
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// NewLLMOracle creates a new LLM-backed oracle.
func NewLLMOracle(config LLMOracleConfig) *LLMOracle {
	systemPrompt := config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 128
	}

	return &LLMOracle{
		provider:     config.Provider,
		model:        config.Model,
		temperature:  temperature,
		maxTokens:    maxTokens,
		systemPrompt: systemPrompt,
	}
}

// Name identifies the oracle by its backend.
func (o *LLMOracle) Name() string {
	return "llm:" + o.provider.Name()
}

// Decide implements the domain oracle.
func (o *LLMOracle) Decide(ctx context.Context, req domain.Request) (agent.State, error) {
	logging.Debug().
		Add(logging.AgentID(req.AgentID)).
		Add(logging.Round(req.Round)).
		Add(logging.State(req.Current)).
		Add(logging.Candidates(len(req.Candidates))).
		Msg("requesting oracle decision")

	resp, err := o.provider.Complete(ctx, CompletionRequest{
		Model:       o.model,
		Messages:    o.buildMessages(req),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("oracle completion failed: %w", err)
	}

	target, err := parseAnswer(resp.Message.Content)
	if err != nil {
		return "", err
	}

	logging.Debug().
		Add(logging.AgentID(req.AgentID)).
		Add(logging.ToState(target)).
		Msg("oracle decision received")

	return target, nil
}

func (o *LLMOracle) buildMessages(req domain.Request) []Message {
	var sb strings.Builder

	sb.WriteString("## Situation\n")
	fmt.Fprintf(&sb, "Agent: %s\n", req.AgentID)
	fmt.Fprintf(&sb, "Round: %d\n", req.Round)
	fmt.Fprintf(&sb, "Current state: %s (for %d rounds)\n", req.Current, req.TicksInState)
	fmt.Fprintf(&sb, "Trigger: %s\n", req.Trigger)
	fmt.Fprintf(&sb, "Engagement threshold: %.2f\n\n", req.EngagementThreshold)

	if len(req.Items) > 0 {
		sb.WriteString("## Feed\n")
		for i, item := range req.Items {
			fmt.Fprintf(&sb, "%d. %s by %s score=%.2f likes=%d\n", i+1, item.PostID, item.AuthorID, item.Score, item.Likes)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Candidates\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	sb.WriteString("\nWhich state comes next? Respond with JSON only.")

	return []Message{
		{Role: "system", Content: o.systemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

type llmAnswer struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// parseAnswer extracts the target from a reply, tolerating markdown code fences.
func parseAnswer(content string) (agent.State, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return "", fmt.Errorf("%w: %w (content: %s)", ErrMalformedAnswer, err, truncate(content, 200))
	}
	if answer.Target == "" {
		return "", fmt.Errorf("%w: missing target", ErrMalformedAnswer)
	}
	return agent.State(strings.ToLower(strings.TrimSpace(answer.Target))), nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
