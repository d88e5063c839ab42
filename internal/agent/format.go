package agent

import (
	"fmt"
	"sort"
	"strings"

	"persona/internal/capability"
)

// FormatResult renders a capability result as a plain sentence for the
// styling prompt. Known capability families get a tailored rendering;
// everything else degrades to a readable key/value summary.
func FormatResult(tool string, result capability.Result) string {
	if capability.IsError(result) {
		return "Error: " + capability.ErrorMessage(result)
	}

	switch {
	case tool == "get_weather":
		return fmt.Sprintf("The weather in %v is %v, %v. Humidity: %v.",
			result["location"], result["temperature"], result["condition"], result["humidity"])
	case tool == "search_wikipedia":
		if s, ok := result["summary"].(string); ok {
			return s
		}
	case tool == "get_current_time":
		return fmt.Sprintf("The current time is %v.", result["current_time"])
	case tool == "calculate_math":
		return fmt.Sprintf("The result of %v is %v.", result["expression"], result["result"])
	case tool == "open_website":
		if m, ok := result["message"].(string); ok {
			return m
		}
	case tool == "recall_first_message":
		if m, ok := result["first_message"].(string); ok {
			return fmt.Sprintf("The first message in this conversation was: %q.", m)
		}
		return "There is no earlier user message to recall."
	case strings.Contains(tool, "currency") || strings.Contains(tool, "exchange"):
		return formatCurrency(result)
	}

	return keyValueSummary(result)
}

func formatCurrency(result capability.Result) string {
	amount := result["amount"]
	from := result["from_currency"]
	to := result["to_currency"]
	converted, cok := asFloat(result["converted_amount"])
	rate, rok := asFloat(result["rate"])
	if !cok || !rok {
		return keyValueSummary(result)
	}

	out := fmt.Sprintf("%v %v is equal to %.2f %v. The exchange rate is 1 %v = %.4f %v.",
		amount, from, converted, to, from, rate, to)
	if updated, ok := result["last_updated"].(string); ok && updated != "" {
		out += " Last updated: " + updated + "."
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func keyValueSummary(result capability.Result) string {
	keys := make([]string, 0, len(result))
	for k := range result {
		if k == "status" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", strings.ReplaceAll(k, "_", " "), result[k]))
	}
	if len(parts) == 0 {
		return "The action completed with no details to report."
	}
	return strings.Join(parts, ". ") + "."
}
