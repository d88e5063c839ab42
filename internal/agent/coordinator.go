// Package agent drives one conversational turn: it prompts the
// generation service, extracts an invocation from the response,
// resolves it against the registry (synthesizing when needed),
// executes it, and renders the outcome in the character's voice.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"persona/internal/action"
	"persona/internal/capability"
	"persona/internal/genservice"
	"persona/internal/logging"
	"persona/internal/synthesis"
)

// TurnType classifies what a turn produced.
type TurnType string

const (
	TurnText   TurnType = "text"
	TurnAction TurnType = "action"
	TurnError  TurnType = "error"
)

// TurnResult is the structured outcome of coordinating one response.
type TurnResult struct {
	Type    TurnType          `json:"type"`
	Content string            `json:"content"`
	Tool    string            `json:"tool,omitempty"`
	Args    map[string]any    `json:"args,omitempty"`
	Result  capability.Result `json:"result,omitempty"`
	// CleanedText is the model response minus the consumed action
	// block; empty for plain-text turns where Content already is the
	// full response.
	CleanedText string `json:"cleaned_text,omitempty"`
}

// Coordinator resolves and executes invocations extracted from model
// responses. Every failure mode degrades to something the user can
// read; nothing escapes a turn as a raw error.
type Coordinator struct {
	llm      genservice.Client
	registry *capability.Registry
	pipeline *synthesis.Pipeline
}

func NewCoordinator(llm genservice.Client, registry *capability.Registry, pipeline *synthesis.Pipeline) *Coordinator {
	return &Coordinator{llm: llm, registry: registry, pipeline: pipeline}
}

// HandleTurn processes one raw model response. userText is the user
// message that triggered it (used by synthesis need detection);
// history is the conversation so far, injected into capabilities that
// want it.
func (c *Coordinator) HandleTurn(ctx context.Context, userText, agentText string, history []capability.Message) TurnResult {
	ex := action.Extract(agentText)
	switch ex.State {
	case action.StatePlainText, action.StateMalformed:
		// Malformed blocks degrade to plain text on purpose.
		return TurnResult{Type: TurnText, Content: ex.CleanedText}
	case action.StateInvalidArguments:
		return TurnResult{
			Type:    TurnError,
			Content: "I tried to use a tool but its parameters were not valid JSON, so I stopped.",
		}
	}

	inv := ex.Invocation
	name, ok := c.resolve(ctx, userText, inv.Tool)
	if !ok {
		// Total resolution failure: answer the request directly with
		// no tool, never surface the raw error to the user.
		return TurnResult{Type: TurnText, Content: c.directAnswer(ctx, userText, ex.CleanedText)}
	}

	c.injectHistory(name, history)

	result := c.registry.Execute(name, inv.Args)
	if capability.IsError(result) {
		if repaired, changed := repairArguments(inv.Args); changed {
			logging.Agent("retrying '%s' with repaired arguments", name)
			if retry := c.registry.Execute(name, repaired); !capability.IsError(retry) {
				result = retry
				inv.Args = repaired
			}
		}
	}

	return TurnResult{
		Type:        TurnAction,
		Tool:        name,
		Args:        inv.Args,
		Result:      result,
		CleanedText: ex.CleanedText,
	}
}

// resolve maps the requested tool name to an executable registry
// entry, synthesizing a capability when the name is absent. The
// returned bool is false only when synthesis totally failed and the
// caller should fall back to a direct answer.
func (c *Coordinator) resolve(ctx context.Context, userText, requested string) (string, bool) {
	if c.registry.Has(requested) {
		return requested, true
	}

	logging.Agent("capability '%s' not registered, entering synthesis", requested)
	name, err := c.pipeline.Synthesize(ctx, userText, requested)
	if err != nil {
		if errors.Is(err, synthesis.ErrNotNeeded) {
			// Detection says an existing capability covers it, but the
			// requested one still is not registered. Executing anyway
			// yields the registry's structured not-found error, which
			// the formatter can explain.
			return requested, true
		}
		logging.AgentWarn("synthesis for '%s' failed: %v", requested, err)
		return "", false
	}
	return name, true
}

// directAnswer is the terminal fallback: answer the user's request
// without any tool. When even that fails, the cleaned response text is
// better than an error.
func (c *Coordinator) directAnswer(ctx context.Context, userText, cleaned string) string {
	prompt := fmt.Sprintf(
		"Answer the following request directly and conversationally, without using any tools:\n\n%s", userText)
	answer, err := c.llm.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(answer) == "" {
		logging.AgentDebug("direct answer fallback failed: %v", err)
		return cleaned
	}
	return answer
}

// injectHistory hands the conversation to capabilities that consume it.
func (c *Coordinator) injectHistory(name string, history []capability.Message) {
	cap, ok := c.registry.Get(name)
	if !ok {
		return
	}
	if aware, ok := cap.(capability.HistoryAware); ok {
		aware.SetConversationHistory(history)
	}
}

// currencyAliases canonicalizes the locale-specific currency spellings
// models put into arguments. This is the whole repair rule set; repair
// runs at most once per execution.
var currencyAliases = map[string]string{
	"dolar":  "USD",
	"dollar": "USD",
	"usd":    "USD",
	"euro":   "EUR",
	"eur":    "EUR",
	"tl":     "TRY",
	"lira":   "TRY",
	"try":    "TRY",
}

func repairArguments(args map[string]any) (map[string]any, bool) {
	repaired := make(map[string]any, len(args))
	changed := false
	for k, v := range args {
		if s, ok := v.(string); ok {
			if canonical, hit := currencyAliases[strings.ToLower(s)]; hit && s != canonical {
				repaired[k] = canonical
				changed = true
				continue
			}
		}
		repaired[k] = v
	}
	return repaired, changed
}
