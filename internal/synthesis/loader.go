package synthesis

import (
	"fmt"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"persona/internal/capability"
)

// Loader turns validated source into a live capability instance. The
// interpreter choice stays behind this interface so the pipeline and
// its tests never depend on one.
type Loader interface {
	Load(source string) (capability.Capability, error)
}

// YaegiLoader interprets capability source with yaegi. Each load gets
// a fresh interpreter so capabilities cannot see each other's state.
type YaegiLoader struct {
	// ExecTimeout bounds each execution of a loaded capability; zero
	// means no bound. Interpreted code is untrusted, so a hung HTTP
	// call or loop inside it must not hang the turn.
	ExecTimeout time.Duration
}

func NewYaegiLoader() *YaegiLoader { return &YaegiLoader{} }

func (l *YaegiLoader) Load(source string) (capability.Capability, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load interpreter symbols: %w", err)
	}

	if _, err := i.Eval(source); err != nil {
		return nil, fmt.Errorf("failed to evaluate capability source: %w", err)
	}

	name, err := evalString(i, "main.CapabilityName")
	if err != nil {
		return nil, err
	}
	description, err := evalString(i, "main.CapabilityDescription")
	if err != nil {
		return nil, err
	}

	execVal, err := i.Eval("main.Execute")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Execute: %w", err)
	}
	execute, ok := execVal.Interface().(func(map[string]interface{}) map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("Execute has wrong signature: %T", execVal.Interface())
	}

	return &loadedCapability{
		Base:    capability.NewBase(name, description),
		execute: execute,
		timeout: l.ExecTimeout,
	}, nil
}

func evalString(i *interp.Interpreter, symbol string) (string, error) {
	v, err := i.Eval(symbol)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", symbol, err)
	}
	s, ok := v.Interface().(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", symbol)
	}
	return s, nil
}

// loadedCapability adapts an interpreted Execute function to the
// capability contract. Panics inside interpreted code are caught at
// the registry boundary like any other capability's.
type loadedCapability struct {
	capability.Base
	execute func(map[string]interface{}) map[string]interface{}
	timeout time.Duration
}

func (c *loadedCapability) Execute(args map[string]any) capability.Result {
	if args == nil {
		args = map[string]any{}
	}

	var res capability.Result
	if c.timeout <= 0 {
		res = c.execute(args)
	} else {
		done := make(chan capability.Result, 1)
		go func() {
			done <- c.execute(args)
		}()
		select {
		case res = <-done:
		case <-time.After(c.timeout):
			return capability.Errorf("capability '%s' timed out after %s", c.Name(), c.timeout)
		}
	}

	if res == nil {
		return capability.Errorf("capability '%s' returned no result", c.Name())
	}
	return res
}
