package pipeline

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://safetydocs.invalid/schema/"

// SchemaRegistry holds the compiled input and output schemas by name. A
// schema named "hira.input" is read from schema/hira.input.json. The
// registry is read-only after construction and safe for concurrent use.
type SchemaRegistry struct {
	schemas map[string]*jsonschema.Schema
	sources map[string][]byte
}

// NewSchemaRegistry compiles every embedded schema
func NewSchemaRegistry() (*SchemaRegistry, error) {
	return newSchemaRegistry(schemaFS, "schema")
}

func newSchemaRegistry(fsys fs.FS, dir string) (*SchemaRegistry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read schema directory", goerr.V("dir", dir))
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	sources := make(map[string][]byte)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read schema", goerr.V("file", entry.Name()))
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, goerr.Wrap(err, "failed to add schema resource", goerr.V("file", entry.Name()))
		}
		sources[strings.TrimSuffix(entry.Name(), ".json")] = data
	}

	registry := &SchemaRegistry{
		schemas: make(map[string]*jsonschema.Schema, len(sources)),
		sources: sources,
	}
	for name := range sources {
		compiled, err := compiler.Compile(schemaBaseURL + name + ".json")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to compile schema", goerr.V(ValueSchema, name))
		}
		registry.schemas[name] = compiled
	}

	return registry, nil
}

// Names returns the registered schema names in lexical order
func (r *SchemaRegistry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a schema is registered under name
func (r *SchemaRegistry) Has(name string) bool {
	_, ok := r.schemas[name]
	return ok
}

// Source returns the raw JSON schema document registered under name
func (r *SchemaRegistry) Source(name string) ([]byte, bool) {
	data, ok := r.sources[name]
	return data, ok
}

// Validate checks raw JSON against the named schema. Any failure, including
// malformed JSON, wraps ErrSchemaViolation.
func (r *SchemaRegistry) Validate(name string, raw []byte) error {
	return r.validate(name, raw, ErrSchemaViolation)
}

func (r *SchemaRegistry) validate(name string, raw []byte, kind *goerr.Error) error {
	_, err := r.decodeValid(name, raw, kind)
	return err
}

// decodeValid parses raw and returns the document once it matches the
// named schema. Numbers are kept as json.Number.
func (r *SchemaRegistry) decodeValid(name string, raw []byte, kind *goerr.Error) (any, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return nil, goerr.New("schema not registered", goerr.V(ValueSchema, name))
	}

	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, goerr.Wrap(kind, "input is not valid JSON",
			goerr.V(ValueSchema, name),
			goerr.V(ValuePath, "/"),
			goerr.V(ValueConstraint, err.Error()),
		)
	}

	if err := validateDocument(schema, name, doc, kind); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateDocument(schema *jsonschema.Schema, name string, doc any, kind *goerr.Error) error {
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return goerr.Wrap(kind, "schema validation failed",
				goerr.V(ValueSchema, name),
				goerr.V(ValueConstraint, err.Error()),
			)
		}
		leaf := firstLeaf(ve)
		return goerr.Wrap(kind, "document does not match schema",
			goerr.V(ValueSchema, name),
			goerr.V(ValuePath, violationPath(leaf)),
			goerr.V(ValueConstraint, leaf.Message),
		)
	}
	return nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after top-level value")
	}
	return doc, nil
}

// integralNumbers rewrites number literals with an integral value, such as
// 4.0 or 4e0, as plain integers. JSON Schema already counts them as
// integers, so Go int fields must accept them too.
func integralNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = integralNumbers(item)
		}
	case []any:
		for i, item := range x {
			x[i] = integralNumbers(item)
		}
	case json.Number:
		if !strings.ContainsAny(string(x), ".eE") {
			return x
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return x
		}
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return v
}

// firstLeaf descends to the most specific cause so that the reported path
// points at the offending field rather than the document root.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

const missingPropertiesPrefix = "missing properties: "

func violationPath(ve *jsonschema.ValidationError) string {
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}

	// A missing property is reported at its parent object; name the field.
	if rest, ok := strings.CutPrefix(ve.Message, missingPropertiesPrefix); ok {
		field := strings.Trim(strings.SplitN(rest, ",", 2)[0], "' ")
		if field != "" {
			return strings.TrimSuffix(loc, "/") + "/" + field
		}
	}
	return loc
}
