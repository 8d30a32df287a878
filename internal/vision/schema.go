package vision

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/entity"
)

// BuildLabelJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the structured-output path, scoped to the fields the given region can
// actually show. Used both as the model-side output constraint and for
// local validation of whatever comes back.
func BuildLabelJSONSchema(region string) map[string]any {
	props := map[string]any{}
	switch region {
	case constants.RegionFront:
		props[constants.FieldName] = map[string]any{"type": "string"}
		props[constants.FieldPrice] = map[string]any{"type": "string", "pattern": `^\d*$`}
		props[constants.FieldVolume] = map[string]any{"type": "string", "pattern": `^\d*$`}
	case constants.RegionSide:
		props[constants.FieldExpiry] = map[string]any{"type": "string", "pattern": `^(\d{4}-\d{2})?$`}
		props[constants.FieldBatch] = map[string]any{"type": "string", "pattern": `^[0-9A-Z-]*$`}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// SanitizeCandidates applies a lenient cleanup so a mostly-good reply
// still validates:
//   - drops null / empty / unknown keys
//   - coerces numeric price/volume to strings
//   - strips whitespace everywhere
//
// Returns the cleaned document and the list of keys it touched.
func SanitizeCandidates(region string, doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	allowed := map[string]struct{}{}
	for k := range BuildLabelJSONSchema(region)["properties"].(map[string]any) {
		allowed[k] = struct{}{}
	}

	var dropped []string
	for k, v := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case float64:
			m[k] = trimFloat(t)
			dropped = append(dropped, k+"(number)")
		case string:
			s := collapseSpace(t)
			if k == constants.FieldPrice || k == constants.FieldVolume {
				// models insert spaces inside multi-digit numbers
				s = stripSpace(s)
			}
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

// DecodeCandidates turns a validated structured reply into the same
// candidate map the plain-text normalizer produces.
func DecodeCandidates(region string, doc []byte) (entity.FieldCandidates, error) {
	var m map[string]string
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	out := entity.FieldCandidates{}
	for k := range BuildLabelJSONSchema(region)["properties"].(map[string]any) {
		out[k] = m[k]
	}
	return out, nil
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

func collapseSpace(s string) string {
	fields := bytes.Fields([]byte(s))
	return string(bytes.Join(fields, []byte(" ")))
}

func stripSpace(s string) string {
	return string(bytes.Join(bytes.Fields([]byte(s)), nil))
}
