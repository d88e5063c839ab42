// Package capability defines the contract every capability satisfies and the
// registry that tracks and executes them.
//
// A capability is a named, independently executable unit. Built-ins are
// constructed at process start; synthesized capabilities are produced by the
// synthesis pipeline at runtime and loaded through the interpreter.
package capability

import "fmt"

// Result is the outcome of a capability execution: either a success payload
// or a structured error carrying an "error" key. Capabilities never panic
// past the registry boundary; failures always surface as an error Result.
type Result = map[string]any

// Origin records how a capability came to exist.
type Origin string

const (
	OriginBuiltin     Origin = "builtin"
	OriginSynthesized Origin = "synthesized"
)

// Capability is the contract for all capabilities, built-in or synthesized.
type Capability interface {
	// Name is unique among active capabilities at any instant.
	Name() string

	// Description is shown to the generation service when assembling the
	// capability roster for a prompt.
	Description() string

	// Execute runs the capability. Implementations return an error Result
	// rather than panicking; the registry enforces this as a backstop.
	Execute(args map[string]any) Result
}

// Info is the List() snapshot entry for prompting and reporting.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Origin      Origin `json:"origin"`
}

// Message is one conversation turn, used by history-aware capabilities.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryAware is the narrow escape from the generic contract for the one
// capability family that reads prior turns. The coordinator injects history
// through this setter before executing; it is not a general pattern.
type HistoryAware interface {
	SetConversationHistory(history []Message)
}

// Errorf builds a structured error Result.
func Errorf(format string, args ...any) Result {
	return Result{"error": fmt.Sprintf(format, args...)}
}

// IsError reports whether a Result is a structured error.
func IsError(r Result) bool {
	_, ok := r["error"]
	return ok
}

// ErrorMessage returns the error text of a structured error Result, or ""
// for a success Result.
func ErrorMessage(r Result) string {
	if v, ok := r["error"]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// Base provides the Name/Description half of the contract for built-ins.
type Base struct {
	name        string
	description string
}

// NewBase creates the embedded base for a built-in capability.
func NewBase(name, description string) Base {
	return Base{name: name, description: description}
}

func (b Base) Name() string        { return b.name }
func (b Base) Description() string { return b.description }

// RequireArgs checks that all required arguments are present, returning an
// error Result naming the first missing one, or nil when all are present.
func RequireArgs(args map[string]any, required ...string) Result {
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return Errorf("missing required argument: %s", name)
		}
	}
	return nil
}
