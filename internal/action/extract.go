// Package action turns one raw model response into either plain text or
// a structured capability invocation.
//
// The scanner is deliberately tolerant and line-oriented, not a general
// parser: only the first action block in a response is honored (any
// later blocks stay in the cleaned text), and a malformed block
// degrades the whole response to plain text instead of attempting a
// partial execution. That leniency is a policy, not an accident.
package action

import (
	"encoding/json"
	"regexp"
	"strings"

	"persona/internal/logging"
)

// State is the terminal state of one extraction run.
type State int

const (
	// StatePlainText means no action block was found; the response is
	// returned to the user unchanged.
	StatePlainText State = iota
	// StateResolved means a well-formed invocation was extracted.
	StateResolved
	// StateMalformed means a block was found but the tool name or the
	// argument payload is missing; treated as plain text.
	StateMalformed
	// StateInvalidArguments means the argument payload was not valid
	// JSON even after normalization; the invocation must not run.
	StateInvalidArguments
)

func (s State) String() string {
	switch s {
	case StatePlainText:
		return "plain_text"
	case StateResolved:
		return "resolved"
	case StateMalformed:
		return "malformed"
	case StateInvalidArguments:
		return "invalid_arguments"
	default:
		return "unknown"
	}
}

// DefaultRationale is used when a block omits the reason field.
const DefaultRationale = "No reason provided"

// Invocation is a resolved capability call request. It lives for one
// turn: built here, consumed by the coordinator, never stored.
type Invocation struct {
	Tool      string
	Args      map[string]any
	Rationale string
	// RawSpan is the exact block text consumed from the response.
	RawSpan string
}

// Extraction is the outcome of scanning one response.
type Extraction struct {
	State      State
	Invocation *Invocation
	// CleanedText is the response with the consumed block removed. For
	// every non-resolved state it is the original text unchanged.
	CleanedText string
}

var (
	blockRe  = regexp.MustCompile(`(?s)<action>.*?</action>`)
	toolRe   = regexp.MustCompile(`(?s)<tool>\s*(.*?)\s*</tool>`)
	argsRe   = regexp.MustCompile(`(?s)<args>\s*(.*?)\s*</args>`)
	reasonRe = regexp.MustCompile(`(?s)<reason>\s*(.*?)\s*</reason>`)
)

// Extract scans text for an action block and parses it. It never
// returns an error: every failure mode maps to a terminal state the
// coordinator knows how to recover from.
func Extract(text string) Extraction {
	span := blockRe.FindString(text)
	if span == "" {
		return Extraction{State: StatePlainText, CleanedText: text}
	}

	tool := firstGroup(toolRe, span)
	rawArgs, argsPresent := firstGroupOK(argsRe, span)
	if tool == "" || !argsPresent {
		logging.Action("malformed action block, treating response as plain text")
		return Extraction{State: StateMalformed, CleanedText: text}
	}

	args, ok := parseArguments(rawArgs)
	if !ok {
		logging.Action("action block for '%s' has invalid JSON arguments", tool)
		return Extraction{State: StateInvalidArguments, CleanedText: text}
	}

	rationale := firstGroup(reasonRe, span)
	if rationale == "" {
		rationale = DefaultRationale
	}

	cleaned := strings.TrimSpace(strings.Replace(text, span, "", 1))
	logging.ActionDebug("resolved invocation: tool=%s args=%d", tool, len(args))
	return Extraction{
		State: StateResolved,
		Invocation: &Invocation{
			Tool:      tool,
			Args:      args,
			Rationale: rationale,
			RawSpan:   span,
		},
		CleanedText: cleaned,
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	v, _ := firstGroupOK(re, s)
	return v
}

func firstGroupOK(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseArguments parses the argument payload. Empty payloads mean "no
// arguments". A strict parse is tried first; on failure one
// normalization pass fixes the two mistakes models actually make
// (single quotes, unquoted keys) and the parse is retried once.
func parseArguments(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		return map[string]any{}, true
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, true
	}

	repaired := NormalizeJSON(raw)
	if err := json.Unmarshal([]byte(repaired), &args); err == nil {
		logging.ActionDebug("argument payload repaired by normalization pass")
		return args, true
	}
	return nil, false
}

var bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// NormalizeJSON applies the repair pass for near-JSON payloads such as
// {from_currency: 'USD', to_currency: 'TRY'}: single quotes become
// double quotes and bare object keys are quoted.
func NormalizeJSON(raw string) string {
	out := strings.ReplaceAll(raw, "'", `"`)
	out = bareKeyRe.ReplaceAllString(out, `$1"$2":`)
	return out
}
