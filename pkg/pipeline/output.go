package pipeline

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/goerr/v2"
)

// OutputSpec declares the shape a flow expects back from the completion
// service. Field names the text field holding the document; it is empty for
// flows whose whole reply object is the result.
type OutputSpec struct {
	Schema    string
	Field     string
	Parameter *gollem.Parameter
}

// OutputSpec builds the spec for a registered output schema. The response
// schema sent to the completion service is derived from the same document
// that validates the reply.
func (r *SchemaRegistry) OutputSpec(name, field string) (OutputSpec, error) {
	src, ok := r.sources[name]
	if !ok {
		return OutputSpec{}, goerr.New("schema not registered", goerr.V(ValueSchema, name))
	}

	var node schemaNode
	if err := json.Unmarshal(src, &node); err != nil {
		return OutputSpec{}, goerr.Wrap(err, "failed to parse output schema", goerr.V(ValueSchema, name))
	}
	param, err := node.parameter()
	if err != nil {
		return OutputSpec{}, goerr.Wrap(err, "failed to convert output schema", goerr.V(ValueSchema, name))
	}

	if field != "" {
		if _, ok := node.Properties[field]; !ok {
			return OutputSpec{}, goerr.New("output field not declared in schema",
				goerr.V(ValueSchema, name), goerr.V("field", field))
		}
	}

	return OutputSpec{Schema: name, Field: field, Parameter: param}, nil
}

// Output is a completion reply that satisfied its output schema
type Output struct {
	Spec OutputSpec
	Raw  json.RawMessage
}

// Text returns the declared text field
func (o Output) Text() (string, error) {
	if o.Spec.Field == "" {
		return "", goerr.New("output spec has no text field", goerr.V(ValueSchema, o.Spec.Schema))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(o.Raw, &obj); err != nil {
		return "", goerr.Wrap(ErrOutputSchemaViolation, "output is not an object", goerr.V(ValueSchema, o.Spec.Schema))
	}
	var text string
	if err := json.Unmarshal(obj[o.Spec.Field], &text); err != nil || strings.TrimSpace(text) == "" {
		return "", goerr.Wrap(ErrOutputSchemaViolation, "output field is not a non-empty string",
			goerr.V(ValueSchema, o.Spec.Schema),
			goerr.V(ValuePath, "/"+o.Spec.Field),
		)
	}
	return text, nil
}

// Decode unmarshals the whole reply into v
func (o Output) Decode(v any) error {
	if err := json.Unmarshal(o.Raw, v); err != nil {
		return goerr.Wrap(ErrOutputSchemaViolation, "failed to decode output",
			goerr.V(ValueSchema, o.Spec.Schema),
			goerr.V(ValueConstraint, err.Error()),
		)
	}
	return nil
}

// ValidateOutput checks a raw completion reply against spec. Markdown code
// fences around the JSON are tolerated; anything else that does not match the
// schema wraps ErrOutputSchemaViolation.
func ValidateOutput(registry *SchemaRegistry, spec OutputSpec, raw string) (Output, error) {
	body := []byte(StripCodeFence(raw))
	if len(bytes.TrimSpace(body)) == 0 {
		return Output{}, goerr.Wrap(ErrOutputSchemaViolation, "empty output",
			goerr.V(ValueSchema, spec.Schema),
			goerr.V(ValuePath, "/"),
		)
	}

	if err := registry.validate(spec.Schema, body, ErrOutputSchemaViolation); err != nil {
		return Output{}, err
	}

	out := Output{Spec: spec, Raw: json.RawMessage(body)}
	if spec.Field != "" {
		if _, err := out.Text(); err != nil {
			return Output{}, err
		}
	}
	return out, nil
}

// StripCodeFence removes a surrounding ```json ... ``` fence if present
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// schemaNode is the subset of JSON Schema that maps onto gollem.Parameter
type schemaNode struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Type        string                 `json:"type"`
	Properties  map[string]*schemaNode `json:"properties"`
	Items       *schemaNode            `json:"items"`
	Enum        []string               `json:"enum"`
}

func (n *schemaNode) parameter() (*gollem.Parameter, error) {
	p := &gollem.Parameter{
		Title:       n.Title,
		Description: n.Description,
		Enum:        n.Enum,
	}

	switch n.Type {
	case "string":
		p.Type = gollem.TypeString
	case "integer":
		p.Type = gollem.TypeInteger
	case "number":
		p.Type = gollem.TypeNumber
	case "boolean":
		p.Type = gollem.TypeBoolean
	case "array":
		p.Type = gollem.TypeArray
		if n.Items == nil {
			return nil, goerr.New("array schema without items")
		}
		items, err := n.Items.parameter()
		if err != nil {
			return nil, err
		}
		p.Items = items
	case "object":
		p.Type = gollem.TypeObject
		p.Properties = make(map[string]*gollem.Parameter, len(n.Properties))
		names := make([]string, 0, len(n.Properties))
		for name := range n.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child, err := n.Properties[name].parameter()
			if err != nil {
				return nil, goerr.Wrap(err, "invalid property", goerr.V("property", name))
			}
			p.Properties[name] = child
		}
	default:
		return nil, goerr.New("unsupported schema type", goerr.V("type", n.Type))
	}

	return p, nil
}
