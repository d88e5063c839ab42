package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"persona/internal/capability"
	"persona/internal/genservice"
	"persona/internal/logging"
)

// Detector decides whether a user request needs a capability that does
// not exist yet. The decision prompt is deliberately conservative:
// over-creation churns names onto the ledger, so "no new capability"
// wins whenever an existing one plausibly applies.
type Detector struct {
	llm genservice.Client
}

func NewDetector(llm genservice.Client) *Detector {
	return &Detector{llm: llm}
}

const detectPromptTemplate = `You decide whether an AI assistant needs a brand new tool to fulfill a user request.

Existing tools:
%s

User request: %s

Be conservative. If any existing tool plausibly covers the request, no new tool is needed. Only propose a new tool for a concrete, automatable task none of the existing tools can perform.

Respond with ONLY a JSON object, no other text:
{"new_tool_needed": false}
or
{"new_tool_needed": true, "tool_name": "snake_case_name", "tool_description": "one sentence", "parameters": [{"name": "...", "type": "string|number|boolean", "description": "...", "required": true}], "implementation_hints": "which public API or computation to use"}`

// Detect returns a Spec when a new capability is needed, or nil when
// an existing one covers the request.
func (d *Detector) Detect(ctx context.Context, userText string, existing []capability.Info) (*Spec, error) {
	var listing strings.Builder
	for _, info := range existing {
		fmt.Fprintf(&listing, "- %s: %s\n", info.Name, info.Description)
	}
	if listing.Len() == 0 {
		listing.WriteString("(none)\n")
	}

	prompt := fmt.Sprintf(detectPromptTemplate, listing.String(), userText)
	raw, err := d.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("need detection failed: %w", err)
	}

	payload := extractJSON(raw)
	var decision struct {
		NewToolNeeded bool `json:"new_tool_needed"`
		Spec
	}
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return nil, fmt.Errorf("need detection returned unparseable decision: %w", err)
	}
	if !decision.NewToolNeeded {
		logging.SynthesisDebug("need detection: existing capabilities cover the request")
		return nil, nil
	}
	if decision.Name == "" || decision.Description == "" {
		return nil, fmt.Errorf("need detection proposed a tool without name or description")
	}

	logging.Synthesis("need detection proposed new capability '%s'", decision.Name)
	spec := decision.Spec
	return &spec, nil
}

// currencyKeywords triggers the pre-classification shortcut for
// exchange-rate requests, the most common synthesized capability.
// Turkish aliases are included because the original user base mixes
// them into otherwise-English requests.
var currencyKeywords = []string{"dolar", "euro", " tl", "lira", "kur", "döviz", "currency", "exchange rate"}

// Preclassify is a keyword shortcut that skips the detection call for
// requests it recognizes. It only accelerates; when it returns nil the
// general Detect path is authoritative.
func Preclassify(userText string) *Spec {
	lower := strings.ToLower(userText)
	for _, kw := range currencyKeywords {
		if strings.Contains(lower, kw) {
			return &Spec{
				Name:        "currency_converter",
				Description: "Converts between different currencies using current exchange rates.",
				Parameters: []Param{
					{Name: "from_currency", Type: "string", Description: "Source currency code (e.g., USD, EUR)", Required: true},
					{Name: "to_currency", Type: "string", Description: "Target currency code (e.g., TRY, EUR)", Required: true},
					{Name: "amount", Type: "number", Description: "Amount to convert", Required: true},
				},
				Hints: "Use the Exchange Rates API (https://open.er-api.com/v6/latest/USD) to get current exchange rates.",
			}
		}
	}
	return nil
}

// extractJSON pulls the first JSON object out of a model response,
// tolerating markdown code fences and prose around it.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "```"); i >= 0 {
		rest := raw[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			raw = rest[:j]
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// DisambiguateName produces a never-before-active name when proposed
// is already on the ledger, by appending a timestamp suffix. The
// collision loop covers the pathological case where the suffixed name
// itself was retired.
func DisambiguateName(proposed string, ledger *Ledger, now func() time.Time) string {
	if !ledger.Contains(proposed) {
		return proposed
	}
	name := fmt.Sprintf("%s_%d", proposed, now().Unix())
	for i := 1; ledger.Contains(name); i++ {
		name = fmt.Sprintf("%s_%d_%d", proposed, now().Unix(), i)
	}
	logging.Synthesis("name '%s' is retired, using '%s'", proposed, name)
	return name
}
