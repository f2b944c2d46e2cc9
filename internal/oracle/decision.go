package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const decisionSchemaURL = "https://schemas.docnav.dev/decision.json"

const decisionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "action": {"type": ["string", "null"]},
    "target_section": {"type": ["string", "number", "null"]},
    "reasoning": {"type": ["string", "null"]},
    "extracted_info": {"type": ["string", "null"]},
    "confidence": {"type": ["number", "null"], "minimum": 0, "maximum": 1}
  }
}`

var decisionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(decisionSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decode decision schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(decisionSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add decision schema: %w", err)
	}
	return c.Compile(decisionSchemaURL)
})

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ParseDecision turns a raw navigation reply into a Decision. Replies may be
// wrapped in a fenced code block or surrounded by prose. A missing action
// means complete; a missing confidence means 0. Every other defect (bad JSON,
// an unknown action, confidence outside [0, 1] or not a number) is a
// *ParseError.
func ParseDecision(raw string) (Decision, error) {
	body := jsonObject(raw)

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return Decision{}, &ParseError{Raw: raw, Err: err}
	}
	schema, err := decisionSchema()
	if err != nil {
		return Decision{}, &ParseError{Raw: raw, Err: err}
	}
	if err := schema.Validate(inst); err != nil {
		return Decision{}, &ParseError{Raw: raw, Err: err}
	}

	obj, ok := inst.(map[string]any)
	if !ok {
		return Decision{}, &ParseError{Raw: raw, Err: fmt.Errorf("reply is %T, not a JSON object", inst)}
	}
	d := Decision{
		Action:        ActionComplete,
		TargetSection: stringField(obj, "target_section"),
		Reasoning:     stringField(obj, "reasoning"),
		ExtractedInfo: stringField(obj, "extracted_info"),
	}
	if s, ok := obj["action"].(string); ok {
		if d.Action, err = ParseAction(s); err != nil {
			return Decision{}, &ParseError{Raw: raw, Err: err}
		}
	}
	if n, ok := obj["confidence"].(json.Number); ok {
		if d.Confidence, err = n.Float64(); err != nil {
			return Decision{}, &ParseError{Raw: raw, Err: err}
		}
	}
	return d, nil
}

// jsonObject strips a code fence, then any prose around the outermost
// braces. Text that opens an array before the first brace is returned as is
// so that it fails as a non-object.
func jsonObject(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start >= 0 && strings.ContainsRune(s[:start], '[') {
		return s
	}
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
