package dataset

import (
	"github.com/go-viper/mapstructure/v2"

	"github.com/physbench/physbench/internal/models"
)

// ExtractSolvable pulls the question and answer text out of a payload.
func ExtractSolvable(q models.Question, questionField, answerField string) (models.SolvableFields, error) {
	var out models.SolvableFields
	err := extract(q, []fieldMapping{
		{source: questionField, target: "question"},
		{source: answerField, target: "answer"},
	}, &out)
	return out, err
}

// ExtractUnsolvable pulls the question text out of a payload.
func ExtractUnsolvable(q models.Question, questionField string) (models.UnsolvableFields, error) {
	var out models.UnsolvableFields
	err := extract(q, []fieldMapping{{source: questionField, target: "question"}}, &out)
	return out, err
}

type fieldMapping struct {
	source string
	target string
}

func extract(q models.Question, fields []fieldMapping, out any) error {
	input := make(map[string]any, len(fields))
	var missing []string
	for _, f := range fields {
		v, ok := q.Payload[f.source]
		if !ok || v == nil {
			missing = append(missing, f.source)
			continue
		}
		input[f.target] = v
	}
	if len(missing) > 0 {
		return &SchemaError{QuestionID: q.ID, Missing: missing}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnset:       true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.source
		}
		return &SchemaError{QuestionID: q.ID, Missing: names, Err: err}
	}
	return nil
}
