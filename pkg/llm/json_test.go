package llm

import (
	"testing"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	input := `{"diagramName": "Orders", "tables": []}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_PlainArray(t *testing.T) {
	input := `[{"name": "users"}, {"name": "orders"}]`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_NestedObject(t *testing.T) {
	input := `{"changes": {"tables": {"add": [{"name": "invoices"}]}}}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_NestedArraysAndObjects(t *testing.T) {
	input := `{"tables": [{"columns": [{"name": "id"}, {"name": "total"}]}]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_WithThinkTags(t *testing.T) {
	input := `<think>
The user wants an order management diagram.
I should return a JSON document.
</think>
{"diagramName": "Orders", "tables": []}`

	expected := `{"diagramName": "Orders", "tables": []}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_WithLeadingWhitespaceAndThinkTags(t *testing.T) {
	input := `
<think>Some thinking here</think>
  {"result": "success"}`

	expected := `{"result": "success"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_WithTextBeforeJSON(t *testing.T) {
	input := `Here is the diagram you asked for:
{"diagramName": "Shop"}`

	expected := `{"diagramName": "Shop"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_WithTextAfterJSON(t *testing.T) {
	input := `{"diagramName": "Shop"}
Let me know if you need anything else.`

	expected := `{"diagramName": "Shop"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	input := "```json\n{\"diagramName\": \"Shop\"}\n```"

	expected := `{"diagramName": "Shop"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_BracketsInStrings(t *testing.T) {
	input := `{"description": "Use {braces} and [brackets] in labels", "count": 1}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_EscapedQuotesInStrings(t *testing.T) {
	input := `{"label": "order \"line\" items", "valid": true}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	input := `This is just plain text with no JSON.`
	_, err := ExtractJSON(input)
	if err == nil {
		t.Error("expected error for input with no JSON")
	}
}

func TestExtractJSON_InvalidJSON(t *testing.T) {
	input := `{"unclosed": "object"`
	_, err := ExtractJSON(input)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestExtractJSON_EmptyInput(t *testing.T) {
	_, err := ExtractJSON("")
	if err == nil {
		t.Error("expected error for empty input")
	}
}

func TestParseJSONResponse_Object(t *testing.T) {
	type doc struct {
		DiagramName string `json:"diagramName"`
		Version     int    `json:"version"`
	}

	input := `<think>thinking</think>{"diagramName": "Orders", "version": 2}`
	result, err := ParseJSONResponse[doc](input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DiagramName != "Orders" {
		t.Errorf("expected diagramName 'Orders', got %q", result.DiagramName)
	}
	if result.Version != 2 {
		t.Errorf("expected version 2, got %d", result.Version)
	}
}

func TestParseJSONResponse_Array(t *testing.T) {
	type table struct {
		Name string `json:"name"`
	}

	input := `[{"name": "users"}, {"name": "orders"}]`
	result, err := ParseJSONResponse[[]table](input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 tables, got %d", len(result))
	}
	if result[0].Name != "users" {
		t.Errorf("expected first table 'users', got %q", result[0].Name)
	}
}

func TestParseJSONResponse_TypeMismatch(t *testing.T) {
	type doc struct {
		Version int `json:"version"`
	}

	input := `{"version": "not a number"}`
	if _, err := ParseJSONResponse[doc](input); err == nil {
		t.Error("expected error for mismatched field type")
	}
}
