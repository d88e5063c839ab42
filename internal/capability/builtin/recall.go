package builtin

import (
	"sync"

	"persona/internal/capability"
)

// RecallFirstMessage returns the first user message of the current
// conversation. The coordinator injects the history before dispatch via
// SetConversationHistory; the capability itself never reads the store.
type RecallFirstMessage struct {
	capability.Base
	mu      sync.RWMutex
	history []capability.Message
}

var _ capability.HistoryAware = (*RecallFirstMessage)(nil)

func NewRecallFirstMessage() *RecallFirstMessage {
	return &RecallFirstMessage{
		Base: capability.NewBase(
			"recall_first_message",
			"Retrieves the first message the user sent in this conversation. No arguments.",
		),
	}
}

func (r *RecallFirstMessage) SetConversationHistory(history []capability.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = history
}

func (r *RecallFirstMessage) Execute(args map[string]any) capability.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.history) == 0 {
		return capability.Result{
			"first_message": nil,
			"error":         "No conversation history available.",
		}
	}
	for _, msg := range r.history {
		if msg.Role == "user" {
			return capability.Result{"first_message": msg.Content}
		}
	}
	return capability.Result{
		"first_message": nil,
		"error":         "No user messages found in conversation history.",
	}
}
