package action

import (
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	text := "The answer is simply 42, no tools needed."
	ex := Extract(text)
	if ex.State != StatePlainText {
		t.Fatalf("state = %s, want plain_text", ex.State)
	}
	if ex.CleanedText != text {
		t.Errorf("plain text must be returned unchanged")
	}
}

func TestExtractIdempotentOnPlainText(t *testing.T) {
	text := "Nothing actionable here."
	once := Extract(text)
	twice := Extract(once.CleanedText)
	if twice.State != StatePlainText || twice.CleanedText != once.CleanedText {
		t.Errorf("re-extraction changed the result: %q vs %q", once.CleanedText, twice.CleanedText)
	}
}

func TestExtractResolved(t *testing.T) {
	text := `Let me compute that. <action><tool>calculate_math</tool><args>{"expression":"2+2*3"}</args><reason>math</reason></action> One moment.`
	ex := Extract(text)
	if ex.State != StateResolved {
		t.Fatalf("state = %s, want resolved", ex.State)
	}
	inv := ex.Invocation
	if inv.Tool != "calculate_math" {
		t.Errorf("tool = %q", inv.Tool)
	}
	if inv.Args["expression"] != "2+2*3" {
		t.Errorf("args = %v", inv.Args)
	}
	if inv.Rationale != "math" {
		t.Errorf("rationale = %q", inv.Rationale)
	}
	if strings.Contains(ex.CleanedText, "<action>") {
		t.Errorf("cleaned text still contains the block: %q", ex.CleanedText)
	}
	if !strings.Contains(ex.CleanedText, "Let me compute that.") || !strings.Contains(ex.CleanedText, "One moment.") {
		t.Errorf("cleaned text lost surrounding prose: %q", ex.CleanedText)
	}
}

func TestExtractDefaultRationale(t *testing.T) {
	text := `<action><tool>get_weather</tool><args>{"location":"Istanbul"}</args></action>`
	ex := Extract(text)
	if ex.State != StateResolved {
		t.Fatalf("state = %s, want resolved", ex.State)
	}
	if ex.Invocation.Rationale != DefaultRationale {
		t.Errorf("rationale = %q, want %q", ex.Invocation.Rationale, DefaultRationale)
	}
}

func TestExtractEmptyArgs(t *testing.T) {
	for _, payload := range []string{"", "{}", "  "} {
		text := `<action><tool>recall_first_message</tool><args>` + payload + `</args></action>`
		ex := Extract(text)
		if ex.State != StateResolved {
			t.Fatalf("payload %q: state = %s, want resolved", payload, ex.State)
		}
		if len(ex.Invocation.Args) != 0 {
			t.Errorf("payload %q: args = %v, want empty", payload, ex.Invocation.Args)
		}
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []string{
		`<action><args>{"x":1}</args></action>`,              // no tool
		`<action><tool>get_weather</tool></action>`,          // no args
		`<action><reason>because</reason></action>`,          // neither
		`<action><tool></tool><args>{"x":1}</args></action>`, // empty tool
	}
	for _, text := range tests {
		ex := Extract(text)
		if ex.State != StateMalformed {
			t.Errorf("%q: state = %s, want malformed", text, ex.State)
		}
		if ex.CleanedText != text {
			t.Errorf("%q: malformed blocks must leave the text unchanged", text)
		}
	}
}

func TestExtractInvalidArguments(t *testing.T) {
	text := `<action><tool>convert_currency</tool><args>{this is not json at all]]</args></action>`
	ex := Extract(text)
	if ex.State != StateInvalidArguments {
		t.Fatalf("state = %s, want invalid_arguments", ex.State)
	}
	if ex.Invocation != nil {
		t.Error("invalid arguments must not produce an invocation")
	}
}

func TestExtractRepairsNearJSON(t *testing.T) {
	text := `<action><tool>convert_currency</tool><args>{from_currency: 'USD', to_currency: 'TRY'}</args><reason>fx</reason></action>`
	ex := Extract(text)
	if ex.State != StateResolved {
		t.Fatalf("state = %s, want resolved", ex.State)
	}
	if ex.Invocation.Args["from_currency"] != "USD" || ex.Invocation.Args["to_currency"] != "TRY" {
		t.Errorf("args = %v", ex.Invocation.Args)
	}
}

func TestExtractFirstBlockOnly(t *testing.T) {
	text := `<action><tool>get_current_time</tool><args>{}</args></action> and also ` +
		`<action><tool>get_weather</tool><args>{"location":"Paris"}</args></action>`
	ex := Extract(text)
	if ex.State != StateResolved {
		t.Fatalf("state = %s, want resolved", ex.State)
	}
	if ex.Invocation.Tool != "get_current_time" {
		t.Errorf("tool = %q, want the first block's tool", ex.Invocation.Tool)
	}
	if !strings.Contains(ex.CleanedText, "get_weather") {
		t.Errorf("second block should remain in cleaned text: %q", ex.CleanedText)
	}
}

func TestNormalizeJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{from: 'USD'}`, `{"from": "USD"}`},
		{`{"already": "fine"}`, `{"already": "fine"}`},
		{`{a: 1, b_2: 'x'}`, `{"a": 1, "b_2": "x"}`},
	}
	for _, tt := range tests {
		if got := NormalizeJSON(tt.in); got != tt.want {
			t.Errorf("NormalizeJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
