package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix JSON that was never written for a strict parser.
// Javascript literals scraped out of web pages and hand-edited files share
// the same defects:
// - Single quotes instead of double quotes
// - Missing quotes around keys
// - Trailing commas
// - Comments
// - Leading/trailing noise around the document
func RepairJSON(input string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(input)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
// Hjson allows comments, unquoted keys and strings, optional commas and
// multiline strings, which makes it the format of choice for run
// configuration files people edit by hand. Note that a quoteless string
// value runs to the end of its line, so members of a single-line object
// must be quoted or comma-separated numbers.
func ParseHJSON(input string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(input), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	// Convert to standard JSON
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}

	return string(jsonBytes), nil
}

// SmartParse tries multiple parsing strategies to land the input in schema.
// It is meant for Javascript literals scraped out of web pages, so the
// repair tier runs before the Hjson tier. Order of attempts:
// 1. Standard JSON parse
// 2. JSON repair
// 3. Hjson parse
//
// Every path ends in encoding/json, so custom UnmarshalJSON implementations
// on the schema are honored no matter which strategy wins.
func SmartParse(input string, schema interface{}) (string, error) {
	return smartParse(input, schema, false)
}

// SmartParseConfig is SmartParse for files people edit by hand: the Hjson
// tier runs before the repair tier. The ordering matters because json-repair
// will happily produce valid JSON from a multi-line Hjson document by
// swallowing everything after the first unquoted value into one string,
// which would silently drop the remaining fields.
func SmartParseConfig(input string, schema interface{}) (string, error) {
	return smartParse(input, schema, true)
}

func smartParse(input string, schema interface{}, hjsonFirst bool) (string, error) {
	// Try 1: Standard JSON
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	tryRepair := func() (string, bool) {
		repaired, err := RepairJSON(input)
		if err == nil {
			if err := json.Unmarshal([]byte(repaired), schema); err == nil {
				return repaired, true
			}
		}
		return "", false
	}
	tryHjson := func() (string, bool) {
		converted, err := ParseHJSON(input)
		if err == nil {
			if err := json.Unmarshal([]byte(converted), schema); err == nil {
				return converted, true
			}
		}
		return "", false
	}

	attempts := []func() (string, bool){tryRepair, tryHjson}
	if hjsonFirst {
		attempts = []func() (string, bool){tryHjson, tryRepair}
	}
	for _, attempt := range attempts {
		if out, ok := attempt(); ok {
			return out, nil
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}
