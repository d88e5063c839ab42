package agent

import (
	"context"
	"fmt"
	"strings"

	"persona/internal/capability"
	"persona/internal/genservice"
	"persona/internal/logging"
	"persona/internal/store"
	"persona/internal/synthesis"
)

// Agent runs full conversational turns for one character: prompt
// assembly, generation, coordination, and the styled final reply.
type Agent struct {
	llm         genservice.Client
	registry    *capability.Registry
	coordinator *Coordinator
	character   *store.Character
	maxHistory  int
}

func New(llm genservice.Client, registry *capability.Registry, pipeline *synthesis.Pipeline, character *store.Character, maxHistory int) *Agent {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &Agent{
		llm:         llm,
		registry:    registry,
		coordinator: NewCoordinator(llm, registry, pipeline),
		character:   character,
		maxHistory:  maxHistory,
	}
}

// Respond runs one turn for userText given the conversation so far and
// returns the result plus the user-facing reply text. The reply never
// carries a raw error; every failure mode reads like conversation.
func (a *Agent) Respond(ctx context.Context, userText string, history []capability.Message) (TurnResult, string) {
	prompt := a.buildPrompt(userText, history)
	agentText, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		logging.AgentWarn("generation failed: %v", err)
		return TurnResult{Type: TurnError, Content: "I could not think of a response just now. Please try again."},
			"I could not think of a response just now. Please try again."
	}

	turn := a.coordinator.HandleTurn(ctx, userText, agentText, history)
	reply := a.renderReply(ctx, userText, turn)
	return turn, reply
}

// renderReply turns a coordinated result into the character's reply.
func (a *Agent) renderReply(ctx context.Context, userText string, turn TurnResult) string {
	switch turn.Type {
	case TurnText, TurnError:
		return turn.Content
	}

	info := FormatResult(turn.Tool, turn.Result)
	styled, err := a.styleResult(ctx, userText, info)
	if err != nil {
		logging.AgentDebug("styled response failed, using plain formatting: %v", err)
		return strings.TrimSpace(turn.CleanedText + " " + info)
	}
	return styled
}

// styleResult asks the model to deliver a tool result in the
// character's voice.
func (a *Agent) styleResult(ctx context.Context, userText, info string) (string, error) {
	name := "the assistant"
	persona := ""
	if a.character != nil {
		name = a.character.Name
		persona = a.character.Prompt
	}

	prompt := fmt.Sprintf(`%s

User: %s

Respond to the following information with your own personality and speaking style, as %s.
This is information provided by a tool, but give your answer naturally.
Information you have: %s

Convey this information to the user in a natural conversation, appropriate to your personality.
Do not prefix your answer with your name, just respond as if in conversation.

%s:`, persona, userText, name, info, name)

	return a.llm.Complete(ctx, prompt)
}

// buildPrompt assembles the system persona, the live capability
// listing, the action format instructions, and the recent history.
func (a *Agent) buildPrompt(userText string, history []capability.Message) string {
	var b strings.Builder

	if a.character != nil {
		if a.character.Prompt != "" {
			b.WriteString(a.character.Prompt)
		} else {
			fmt.Fprintf(&b, "You are %s. %s %s", a.character.Name, a.character.Background, a.character.Personality)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTools You Can Use:\n")
	for _, info := range a.registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Description)
	}
	b.WriteString(`
When you want to use a tool, respond in this exact format:
<action>
  <tool>tool_name</tool>
  <args>{"parameter1": "value1"}</args>
  <reason>why you are using this tool</reason>
</action>

Use a tool only when the request needs one. Use at most one action per response. If no tool applies, just answer normally.
`)

	if len(history) > a.maxHistory {
		history = history[len(history)-a.maxHistory:]
	}
	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}

	fmt.Fprintf(&b, "\nUser: %s\n", userText)
	return b.String()
}
