package synthesis

import "fmt"

// FallbackSource builds the deterministic replacement used when the
// generated code fails structural validation. It satisfies the
// contract and loads cleanly, but reports itself as a placeholder so
// the user learns the capability is not functional yet.
func FallbackSource(name, description string) string {
	return fmt.Sprintf(`package main

import "fmt"

const CapabilityName = %q
const CapabilityDescription = %q

func Execute(args map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":  "placeholder",
		"message": fmt.Sprintf("capability %%s is registered but has no working implementation yet", CapabilityName),
		"args":    args,
	}
}
`, name, description)
}

// MinimalFallbackSource is the last-resort variant used when even the
// standard fallback fails to load. It imports nothing.
func MinimalFallbackSource(name, description string) string {
	return fmt.Sprintf(`package main

const CapabilityName = %q
const CapabilityDescription = %q

func Execute(args map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":  "placeholder",
		"message": "capability " + CapabilityName + " could not be synthesized",
	}
}
`, name, description)
}
