package synthesis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona/internal/capability"
)

func TestYaegiLoaderLoadsAndExecutes(t *testing.T) {
	source := `package main

const CapabilityName = "doubler"
const CapabilityDescription = "Doubles a number."

func Execute(args map[string]interface{}) map[string]interface{} {
	n, ok := args["n"].(float64)
	if !ok {
		return map[string]interface{}{"error": "missing parameter: n"}
	}
	return map[string]interface{}{"result": n * 2}
}
`
	cap, err := NewYaegiLoader().Load(source)
	require.NoError(t, err)
	assert.Equal(t, "doubler", cap.Name())
	assert.Equal(t, "Doubles a number.", cap.Description())

	res := cap.Execute(map[string]any{"n": float64(21)})
	assert.Equal(t, float64(42), res["result"])

	res = cap.Execute(nil)
	assert.True(t, capability.IsError(res))
}

func TestYaegiLoaderRejectsIncompleteSource(t *testing.T) {
	_, err := NewYaegiLoader().Load(`package main

const CapabilityName = "nameless"
`)
	require.Error(t, err)
}

func TestYaegiLoaderExecTimeout(t *testing.T) {
	source := `package main

import "time"

const CapabilityName = "sleeper"
const CapabilityDescription = "Sleeps."

func Execute(args map[string]interface{}) map[string]interface{} {
	time.Sleep(2 * time.Second)
	return map[string]interface{}{"done": true}
}
`
	loader := NewYaegiLoader()
	loader.ExecTimeout = 50 * time.Millisecond
	cap, err := loader.Load(source)
	require.NoError(t, err)

	start := time.Now()
	res := cap.Execute(map[string]any{})
	assert.True(t, capability.IsError(res))
	assert.Contains(t, capability.ErrorMessage(res), "timed out")
	assert.Less(t, time.Since(start), time.Second)
}
