package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona/internal/capability"
	"persona/internal/synthesis"
)

// scriptedLLM returns canned responses in order.
type scriptedLLM struct {
	responses []string
	calls     []string
	err       error
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(context.Background(), "", prompt)
}

func (s *scriptedLLM) CompleteWithSystem(_ context.Context, _, prompt string) (string, error) {
	s.calls = append(s.calls, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("scripted LLM exhausted")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

type fnCapability struct {
	capability.Base
	fn      func(map[string]any) capability.Result
	history []capability.Message
}

func (c *fnCapability) Execute(args map[string]any) capability.Result { return c.fn(args) }

func (c *fnCapability) SetConversationHistory(h []capability.Message) { c.history = h }

func newTestCoordinator(t *testing.T, llm *scriptedLLM) (*Coordinator, *capability.Registry) {
	t.Helper()
	dir := t.TempDir()
	ledger, err := synthesis.OpenLedger(filepath.Join(dir, "deleted.json"))
	require.NoError(t, err)
	srcStore, err := synthesis.NewStore(filepath.Join(dir, "capabilities"))
	require.NoError(t, err)
	registry := capability.NewRegistry()
	pipeline := synthesis.NewPipeline(llm, registry, ledger, srcStore, synthesis.NewYaegiLoader())
	return NewCoordinator(llm, registry, pipeline), registry
}

func TestHandleTurnPlainText(t *testing.T) {
	c, _ := newTestCoordinator(t, &scriptedLLM{})
	text := "Just a friendly answer, no tools."
	turn := c.HandleTurn(context.Background(), "hi", text, nil)
	assert.Equal(t, TurnText, turn.Type)
	assert.Equal(t, text, turn.Content)
}

func TestHandleTurnMalformedBlockDegradesToText(t *testing.T) {
	c, _ := newTestCoordinator(t, &scriptedLLM{})
	text := `I will do it. <action><tool>get_weather</tool></action>`
	turn := c.HandleTurn(context.Background(), "weather?", text, nil)
	assert.Equal(t, TurnText, turn.Type)
	assert.Equal(t, text, turn.Content)
}

func TestHandleTurnInvalidArguments(t *testing.T) {
	c, _ := newTestCoordinator(t, &scriptedLLM{})
	text := `<action><tool>x</tool><args>{broken [}</args></action>`
	turn := c.HandleTurn(context.Background(), "go", text, nil)
	assert.Equal(t, TurnError, turn.Type)
	assert.Contains(t, turn.Content, "not valid JSON")
}

func TestHandleTurnExecutesRegistered(t *testing.T) {
	c, registry := newTestCoordinator(t, &scriptedLLM{})
	registry.Register(&fnCapability{
		Base: capability.NewBase("echo", "echoes"),
		fn: func(args map[string]any) capability.Result {
			return capability.Result{"echo": args["text"]}
		},
	}, capability.OriginBuiltin)

	text := `On it. <action><tool>echo</tool><args>{"text":"hello"}</args><reason>echoing</reason></action>`
	turn := c.HandleTurn(context.Background(), "say hello", text, nil)
	require.Equal(t, TurnAction, turn.Type)
	assert.Equal(t, "echo", turn.Tool)
	assert.Equal(t, "hello", turn.Result["echo"])
	assert.Equal(t, "On it.", turn.CleanedText)
}

func TestHandleTurnRepairsArgumentsOnce(t *testing.T) {
	c, registry := newTestCoordinator(t, &scriptedLLM{})
	var attempts []map[string]any
	registry.Register(&fnCapability{
		Base: capability.NewBase("convert_currency", "fx"),
		fn: func(args map[string]any) capability.Result {
			attempts = append(attempts, args)
			if args["from_currency"] != "USD" {
				return capability.Errorf("unknown currency %v", args["from_currency"])
			}
			return capability.Result{"converted_amount": 3400.0, "rate": 34.0, "amount": 100, "from_currency": "USD", "to_currency": args["to_currency"]}
		},
	}, capability.OriginSynthesized)

	text := `<action><tool>convert_currency</tool><args>{"from_currency":"dolar","to_currency":"tl","amount":100}</args></action>`
	turn := c.HandleTurn(context.Background(), "100 dolar kaç tl", text, nil)
	require.Equal(t, TurnAction, turn.Type)
	require.Len(t, attempts, 2)
	assert.Equal(t, "USD", attempts[1]["from_currency"])
	assert.Equal(t, "TRY", attempts[1]["to_currency"])
	assert.False(t, capability.IsError(turn.Result))
	assert.Equal(t, "USD", turn.Args["from_currency"])
}

func TestHandleTurnRepairFailureKeepsError(t *testing.T) {
	c, registry := newTestCoordinator(t, &scriptedLLM{})
	calls := 0
	registry.Register(&fnCapability{
		Base: capability.NewBase("always_fails", "broken"),
		fn: func(map[string]any) capability.Result {
			calls++
			return capability.Errorf("still broken")
		},
	}, capability.OriginBuiltin)

	text := `<action><tool>always_fails</tool><args>{"from_currency":"dolar"}</args></action>`
	turn := c.HandleTurn(context.Background(), "x", text, nil)
	require.Equal(t, TurnAction, turn.Type)
	assert.True(t, capability.IsError(turn.Result))
	// One original attempt plus exactly one repair retry.
	assert.Equal(t, 2, calls)
}

func TestHandleTurnInjectsHistory(t *testing.T) {
	c, registry := newTestCoordinator(t, &scriptedLLM{})
	recall := &fnCapability{
		Base: capability.NewBase("recall_first_message", "recalls"),
	}
	recall.fn = func(map[string]any) capability.Result {
		if len(recall.history) == 0 {
			return capability.Errorf("no history")
		}
		return capability.Result{"first_message": recall.history[0].Content}
	}
	registry.Register(recall, capability.OriginBuiltin)

	history := []capability.Message{{Role: "user", Content: "the very first thing"}}
	text := `<action><tool>recall_first_message</tool><args>{}</args></action>`
	turn := c.HandleTurn(context.Background(), "what did I say first?", text, history)
	require.Equal(t, TurnAction, turn.Type)
	assert.Equal(t, "the very first thing", turn.Result["first_message"])
}

func TestHandleTurnSynthesizesMissingCapability(t *testing.T) {
	source := `package main

const CapabilityName = "string_reverser"
const CapabilityDescription = "Reverses a string."

func Execute(args map[string]interface{}) map[string]interface{} {
	s, _ := args["text"].(string)
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return map[string]interface{}{"reversed": string(runes)}
}
`
	llm := &scriptedLLM{responses: []string{
		`{"new_tool_needed": true, "tool_name": "string_reverser", "tool_description": "Reverses a string.", "parameters": [{"name": "text", "type": "string", "description": "text", "required": true}], "implementation_hints": "local computation"}`,
		"```go\n" + source + "```",
	}}
	c, registry := newTestCoordinator(t, llm)

	text := `<action><tool>string_reverser</tool><args>{"text":"abc"}</args></action>`
	turn := c.HandleTurn(context.Background(), "reverse abc for me", text, nil)
	require.Equal(t, TurnAction, turn.Type)
	assert.Equal(t, "string_reverser", turn.Tool)
	assert.Equal(t, "cba", turn.Result["reversed"])
	assert.True(t, registry.Has("string_reverser"))
}

func TestHandleTurnSynthesisFailureFallsBackToText(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("model unavailable")}
	c, _ := newTestCoordinator(t, llm)

	text := `Let me check. <action><tool>mystery_tool</tool><args>{}</args></action>`
	turn := c.HandleTurn(context.Background(), "do something novel", text, nil)
	assert.Equal(t, TurnText, turn.Type)
	assert.Equal(t, "Let me check.", turn.Content)
}

func TestHandleTurnSynthesisFailureGetsDirectAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"I refuse to answer with JSON.", // need detection: unparseable
		"Here is the answer without any tool.",
	}}
	c, _ := newTestCoordinator(t, llm)

	text := `<action><tool>mystery_tool</tool><args>{}</args></action>`
	turn := c.HandleTurn(context.Background(), "something novel", text, nil)
	assert.Equal(t, TurnText, turn.Type)
	assert.Equal(t, "Here is the answer without any tool.", turn.Content)
}

func TestRepairArguments(t *testing.T) {
	repaired, changed := repairArguments(map[string]any{
		"from_currency": "dolar",
		"to_currency":   "TL",
		"amount":        100,
		"note":          "unrelated",
	})
	require.True(t, changed)
	assert.Equal(t, "USD", repaired["from_currency"])
	assert.Equal(t, "TRY", repaired["to_currency"])
	assert.Equal(t, 100, repaired["amount"])
	assert.Equal(t, "unrelated", repaired["note"])

	_, changed = repairArguments(map[string]any{"location": "Istanbul"})
	assert.False(t, changed)
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		tool   string
		result capability.Result
		want   string
	}{
		{"calculate_math", capability.Result{"expression": "2+2*3", "result": int64(8)}, "The result of 2+2*3 is 8."},
		{"get_current_time", capability.Result{"current_time": "2025-06-15 15:00:00"}, "The current time is 2025-06-15 15:00:00."},
		{"anything", capability.Errorf("boom"), "Error: boom"},
		{"recall_first_message", capability.Result{"first_message": "hi"}, `The first message in this conversation was: "hi".`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatResult(tt.tool, tt.result), tt.tool)
	}
}

func TestFormatResultCurrency(t *testing.T) {
	got := FormatResult("currency_converter_1700000000", capability.Result{
		"amount": 100, "from_currency": "USD", "to_currency": "TRY",
		"converted_amount": 3412.5, "rate": 34.125, "last_updated": "2025-06-15",
	})
	assert.Equal(t, "100 USD is equal to 3412.50 TRY. The exchange rate is 1 USD = 34.1250 TRY. Last updated: 2025-06-15.", got)
}

func TestFormatResultFallbackSummary(t *testing.T) {
	got := FormatResult("mystery", capability.Result{"status": "success", "fun_fact": "cats sleep a lot"})
	assert.Equal(t, "fun fact: cats sleep a lot.", got)
}

func TestFormatResultTableDoesNotPanicOnMissingKeys(t *testing.T) {
	// Sparse results from synthesized capabilities must still format.
	got := FormatResult("get_weather", capability.Result{})
	assert.NotEmpty(t, got)
	_ = fmt.Sprintf("%v", got)
}
