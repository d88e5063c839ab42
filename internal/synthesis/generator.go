package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"persona/internal/genservice"
	"persona/internal/logging"
)

// Generator asks the generation service for capability source code.
type Generator struct {
	llm genservice.Client
}

func NewGenerator(llm genservice.Client) *Generator {
	return &Generator{llm: llm}
}

const generateSystemPrompt = `You write single-file Go programs that implement tools for an AI assistant. You respond with Go source code only, inside one code fence, with no explanation.`

const generatePromptTemplate = `Write a complete Go file implementing the tool described below.

Tool name: %s
Description: %s
Parameters:
%s
Implementation hints: %s

Hard requirements:
- Declare: package main
- Declare: const CapabilityName = %q
- Declare: const CapabilityDescription = %q (or a close paraphrase)
- Declare: func Execute(args map[string]interface{}) map[string]interface{}
- Execute must validate its arguments and return {"error": "<message>"} for bad input instead of panicking.
- The implementation must do the real work. If the tool needs external data, call the real public API over HTTP and parse the response. A hardcoded or fabricated answer is only acceptable when the task is purely local computation (e.g., arithmetic).
- No side effects on the machine: do not touch the filesystem, environment, or processes.
- Import only from this list: %s.%s

Respond with only the Go source code.`

// Generate produces source implementing spec. forbiddenImports lists
// packages a previous load attempt could not satisfy; when non-empty
// the prompt explicitly bans them.
func (g *Generator) Generate(ctx context.Context, spec *Spec, forbiddenImports []string) (string, error) {
	var params strings.Builder
	for _, p := range spec.Parameters {
		req := "optional"
		if p.Required {
			req = "required"
		}
		fmt.Fprintf(&params, "- %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description)
	}
	if params.Len() == 0 {
		params.WriteString("(none)\n")
	}

	var forbidden string
	if len(forbiddenImports) > 0 {
		forbidden = fmt.Sprintf("\n- Additionally, do NOT import: %s.", strings.Join(forbiddenImports, ", "))
	}

	prompt := fmt.Sprintf(generatePromptTemplate,
		spec.Name, spec.Description, params.String(), spec.Hints,
		spec.Name, spec.Description, allowedImportList(), forbidden)

	raw, err := g.llm.CompleteWithSystem(ctx, generateSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("source generation failed: %w", err)
	}

	source := extractCodeBlock(raw)
	if source == "" {
		return "", fmt.Errorf("source generation returned no code")
	}
	logging.SynthesisDebug("generated %d bytes of source for '%s'", len(source), spec.Name)
	return source, nil
}

func allowedImportList() string {
	paths := make([]string, 0, len(allowedImports))
	for p := range allowedImports {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return strings.Join(paths, ", ")
}

// extractCodeBlock returns the contents of the first fenced code block,
// or the whole response when no fence is present but the text looks
// like Go source.
func extractCodeBlock(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "```"); i >= 0 {
		rest := raw[i+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			// Drop the language tag line (```go).
			if fence := strings.TrimSpace(rest[:nl]); fence == "go" || fence == "golang" || fence == "" {
				rest = rest[nl+1:]
			}
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if strings.Contains(raw, "package main") {
		return raw
	}
	return ""
}
