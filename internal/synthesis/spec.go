// Package synthesis creates new capabilities at runtime: it decides
// whether a user's request needs one, asks the generation service for
// an implementation, validates and hot-loads the source, and registers
// the result. Every stage has a fallback; the pipeline never lets a
// failure escape a turn.
package synthesis

// Spec describes one capability to synthesize.
type Spec struct {
	Name        string  `json:"tool_name"`
	Description string  `json:"tool_description"`
	Parameters  []Param `json:"parameters"`
	Hints       string  `json:"implementation_hints"`
}

// Param is one argument the synthesized capability accepts.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}
