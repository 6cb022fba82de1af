package oracle

import "testing"

func TestParseJSONResponse(t *testing.T) {
	parsed := ParseJSONResponse(`{"tier": "niche", "reason": "local interest"}`)
	if parsed == nil {
		t.Fatal("expected parsed response")
	}
	if got := stringField(parsed, "tier"); got != "niche" {
		t.Errorf("tier = %q, want niche", got)
	}
}

func TestParseJSONResponseMarkdownFences(t *testing.T) {
	text := "```json\n{\"duplicate_of\": \"abc\"}\n```"
	parsed := ParseJSONResponse(text)
	if parsed == nil {
		t.Fatal("expected parsed response")
	}
	if got := stringField(parsed, "duplicate_of"); got != "abc" {
		t.Errorf("duplicate_of = %q, want abc", got)
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	if ParseJSONResponse("not json at all") != nil {
		t.Error("expected nil for invalid JSON")
	}
	if ParseJSONResponse("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestIntField(t *testing.T) {
	parsed := ParseJSONResponse(`{"insert_after_index": 2}`)
	if parsed == nil {
		t.Fatal("expected parsed response")
	}
	idx := intField(parsed, "insert_after_index")
	if idx == nil || *idx != 2 {
		t.Errorf("intField = %v, want 2", idx)
	}
	if intField(parsed, "missing") != nil {
		t.Error("expected nil for missing key")
	}
}
