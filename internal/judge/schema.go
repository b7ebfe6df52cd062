package judge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Structured output schema names sent with judge calls.
const (
	BatchSchemaName   = "evaluation_scores"
	RankingSchemaName = "hypothesis_rankings"
)

// BatchSchema builds the request schema for a batched keyed evaluation:
// an "evaluations" object with one required {score, reasoning} entry per
// key.
func BatchSchema(keys []string) map[string]any {
	properties := make(map[string]any, len(keys))
	required := make([]any, 0, len(keys))
	for _, key := range keys {
		properties[key] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Score for %s (1-5)", key),
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Brief explanation for the score given to %s", key),
				},
			},
			"required":             []any{"score", "reasoning"},
			"additionalProperties": false,
		}
		required = append(required, key)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"evaluations": map[string]any{
				"type":                 "object",
				"properties":           properties,
				"required":             required,
				"additionalProperties": false,
			},
		},
		"required":             []any{"evaluations"},
		"additionalProperties": false,
	}
}

// RankingSchema builds the request schema for ranking n hypotheses.
func RankingSchema(n int) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rankings": map[string]any{
				"type": "array",
				"description": fmt.Sprintf("MUST contain exactly %d integers. rankings[i] is the rank (1 to %d) "+
					"assigned to Response i+1. Lower rank means better quality. Each rank value must be used exactly once.", n, n),
				"items": map[string]any{"type": "integer"},
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Brief explanation of the ranking rationale.",
			},
		},
		"required":             []any{"rankings", "explanation"},
		"additionalProperties": false,
	}
}

// entrySchema validates one candidate's entry in a batch payload.
var entrySchema = mustCompile("evaluation_entry.json", map[string]any{
	"type":     "object",
	"required": []any{"score", "reasoning"},
	"properties": map[string]any{
		"score":     map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
		"reasoning": map[string]any{"type": "string"},
	},
})

var rankingSchemas sync.Map // int -> *jsonschema.Schema

// rankingValidator returns a schema accepting exactly the permutations of
// 1..n. The request schema cannot carry these constraints in strict mode,
// so responses are checked against this one.
func rankingValidator(n int) (*jsonschema.Schema, error) {
	if s, ok := rankingSchemas.Load(n); ok {
		return s.(*jsonschema.Schema), nil
	}
	s, err := compile(fmt.Sprintf("ranking_%d.json", n), map[string]any{
		"type":     "object",
		"required": []any{"rankings", "explanation"},
		"properties": map[string]any{
			"rankings": map[string]any{
				"type":        "array",
				"minItems":    n,
				"maxItems":    n,
				"uniqueItems": true,
				"items":       map[string]any{"type": "integer", "minimum": 1, "maximum": n},
			},
			"explanation": map[string]any{"type": "string"},
		},
	})
	if err != nil {
		return nil, err
	}
	actual, _ := rankingSchemas.LoadOrStore(n, s)
	return actual.(*jsonschema.Schema), nil
}

func compile(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("serializing schema %s: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", name, err)
	}
	return compiler.Compile(name)
}

func mustCompile(name string, schema map[string]any) *jsonschema.Schema {
	s, err := compile(name, schema)
	if err != nil {
		panic(err)
	}
	return s
}

// validateJSON checks raw JSON against schema.
func validateJSON(schema *jsonschema.Schema, raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

// extractJSON strips a markdown code fence some models wrap structured
// output in.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
