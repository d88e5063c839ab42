package capability

import (
	"testing"
)

type stubCapability struct {
	Base
	fn func(args map[string]any) Result
}

func newStub(name string, fn func(args map[string]any) Result) *stubCapability {
	return &stubCapability{Base: NewBase(name, "stub: "+name), fn: fn}
}

func (s *stubCapability) Execute(args map[string]any) Result {
	return s.fn(args)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d capabilities", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("echo", func(args map[string]any) Result {
		return Result{"echo": args["value"]}
	}), OriginBuiltin)

	got, ok := reg.Get("echo")
	if !ok {
		t.Fatal("Get returned false for registered capability")
	}
	if got.Name() != "echo" {
		t.Errorf("got name %q, want %q", got.Name(), "echo")
	}

	origin, ok := reg.Origin("echo")
	if !ok || origin != OriginBuiltin {
		t.Errorf("got origin %q, want %q", origin, OriginBuiltin)
	}
}

func TestRegisterReplacesSameName(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("dupe", func(map[string]any) Result {
		return Result{"version": 1}
	}), OriginBuiltin)
	reg.Register(newStub("dupe", func(map[string]any) Result {
		return Result{"version": 2}
	}), OriginSynthesized)

	if reg.Count() != 1 {
		t.Fatalf("expected exactly one active entry, got %d", reg.Count())
	}

	result := reg.Execute("dupe", nil)
	if result["version"] != 2 {
		t.Errorf("expected latest registration to win, got %v", result)
	}

	// List must never contain duplicate names.
	seen := map[string]bool{}
	for _, info := range reg.List() {
		if seen[info.Name] {
			t.Errorf("List contains duplicate name %q", info.Name)
		}
		seen[info.Name] = true
	}
}

func TestExecuteUnknownName(t *testing.T) {
	reg := NewRegistry()
	result := reg.Execute("nope", map[string]any{})
	if !IsError(result) {
		t.Fatalf("expected structured error, got %v", result)
	}
	if ErrorMessage(result) != "capability 'nope' not found" {
		t.Errorf("unexpected error message: %q", ErrorMessage(result))
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("boom", func(map[string]any) Result {
		panic("kaboom")
	}), OriginSynthesized)

	result := reg.Execute("boom", nil)
	if !IsError(result) {
		t.Fatalf("expected structured error from panicking capability, got %v", result)
	}
}

func TestExecuteNilResult(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("void", func(map[string]any) Result {
		return nil
	}), OriginBuiltin)

	result := reg.Execute("void", nil)
	if !IsError(result) {
		t.Fatalf("nil result should surface as structured error, got %v", result)
	}
}

func TestUnregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("gone", func(map[string]any) Result {
		return Result{}
	}), OriginSynthesized)

	if !reg.Unregister("gone") {
		t.Fatal("Unregister returned false for registered capability")
	}
	if reg.Unregister("gone") {
		t.Fatal("Unregister returned true for already-removed capability")
	}
	if reg.Has("gone") {
		t.Error("capability still present after Unregister")
	}
}

func TestListSnapshotIsLive(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("a", func(map[string]any) Result { return Result{} }), OriginBuiltin)

	before := len(reg.List())
	reg.Register(newStub("b", func(map[string]any) Result { return Result{} }), OriginBuiltin)
	after := len(reg.List())

	if before != 1 || after != 2 {
		t.Errorf("List must reflect registry at call time: before=%d after=%d", before, after)
	}
}

func TestRequireArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		required []string
		wantErr  bool
	}{
		{"all present", map[string]any{"x": 1, "y": 2}, []string{"x", "y"}, false},
		{"one missing", map[string]any{"x": 1}, []string{"x", "y"}, true},
		{"no requirements", map[string]any{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := RequireArgs(tt.args, tt.required...)
			if (res != nil) != tt.wantErr {
				t.Errorf("RequireArgs() = %v, wantErr %v", res, tt.wantErr)
			}
		})
	}
}
