package utils

import "testing"

func TestSmartParse_StrictJSON(t *testing.T) {
	var out map[string]interface{}
	_, err := SmartParse(`{"ticker": "AAPL", "years": 4}`, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["ticker"] != "AAPL" {
		t.Errorf("expected AAPL, got %v", out["ticker"])
	}
}

func TestSmartParse_RepairsScrapedLiteral(t *testing.T) {
	// Javascript object literal with single quotes and a trailing comma.
	input := `[{'field_name': 'Revenue', '2023-12-31': '383,285',}]`

	var out []map[string]interface{}
	_, err := SmartParse(input, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out))
	}
	if out[0]["field_name"] != "Revenue" {
		t.Errorf("expected Revenue, got %v", out[0]["field_name"])
	}
}

func TestSmartParseConfig_HJSON(t *testing.T) {
	input := `
{
  # run configuration
  ticker: MSFT
  years: 4
}
`
	var out struct {
		Ticker string  `json:"ticker"`
		Years  float64 `json:"years"`
	}
	_, err := SmartParseConfig(input, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Ticker != "MSFT" {
		t.Errorf("expected MSFT, got %s", out.Ticker)
	}
	if out.Years != 4 {
		t.Errorf("expected 4, got %f", out.Years)
	}
}

func TestSmartParseConfig_KeepsFieldsAfterQuotelessString(t *testing.T) {
	// json-repair turns a multi-line Hjson document into one giant string
	// value for the first unquoted field. The config variant must take the
	// Hjson reading instead so later fields survive.
	input := `
{
  ticker: MSFT
  years: 4
  seed: 42
  nested: {
    method: Uniform
  }
}
`
	var out struct {
		Ticker string  `json:"ticker"`
		Years  float64 `json:"years"`
		Seed   int64   `json:"seed"`
		Nested struct {
			Method string `json:"method"`
		} `json:"nested"`
	}
	if _, err := SmartParseConfig(input, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Ticker != "MSFT" {
		t.Errorf("expected MSFT, got %q", out.Ticker)
	}
	if out.Years != 4 {
		t.Errorf("expected years 4, got %f", out.Years)
	}
	if out.Seed != 42 {
		t.Errorf("expected seed 42, got %d", out.Seed)
	}
	if out.Nested.Method != "Uniform" {
		t.Errorf("expected Uniform, got %q", out.Nested.Method)
	}
}

func TestSmartParse_Unparseable(t *testing.T) {
	var out map[string]interface{}
	if _, err := SmartParse("]]][[", &out); err == nil {
		t.Fatal("expected error for unparseable input, got nil")
	}
}

func TestParseHJSON(t *testing.T) {
	jsonOut, err := ParseHJSON("{\n  a: 1\n  b: hello\n}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"a":1,"b":"hello"}`
	if jsonOut != expected {
		t.Errorf("expected %s, got %s", expected, jsonOut)
	}
}

func TestParseHJSON_QuotelessStringRunsToLineEnd(t *testing.T) {
	// On a single line the quoteless value swallows the closing brace.
	if _, err := ParseHJSON("{a: 1, b: hello}"); err == nil {
		t.Error("expected error for single-line quoteless string")
	}
}
