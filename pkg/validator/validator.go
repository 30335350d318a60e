package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FieldError describes the first field that failed validation
type FieldError struct {
	Field string // json name of the field
	Msg   string
}

func (e *FieldError) Error() string {
	return e.Msg
}

// Schema is a compiled JSON Schema for one request payload
type Schema struct {
	name     string
	compiled *jsonschema.Schema
	field    string // reported for failures not tied to a single property
	msg      string
}

// Compile compiles a Draft 2020-12 schema. field and msg are reported when
// a failure concerns the payload as a whole (anyOf, minProperties).
func Compile(name, src, field, msg string) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://docflow.schemas.local/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("schema %s load failed: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s compile failed: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled, field: field, msg: msg}, nil
}

// MustCompile is Compile for package level schemas
func MustCompile(name, src, field, msg string) *Schema {
	s, err := Compile(name, src, field, msg)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks payload against the schema. payload is encoded with its
// json tags first, so nil pointers and nil slices are seen as null.
// A schema violation is returned as a *FieldError.
func (s *Schema) Validate(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", s.name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", s.name, err)
	}

	err = s.compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return s.fieldError(doc, verr)
}

func (s *Schema) fieldError(doc any, verr *jsonschema.ValidationError) *FieldError {
	leaf := firstLeaf(verr)
	field, _, _ := strings.Cut(strings.TrimPrefix(leaf.InstanceLocation, "/"), "/")
	if field == "" || isAnyOf(leaf) {
		return &FieldError{Field: s.field, Msg: s.msg}
	}
	if obj, ok := doc.(map[string]any); ok {
		if v, present := obj[field]; present && v == nil {
			return &FieldError{Field: field, Msg: field + " is required"}
		}
	}
	return &FieldError{Field: field, Msg: field + ": " + leaf.Message}
}

// firstLeaf returns the innermost cause with the smallest instance location.
// anyOf failures are not descended into.
func firstLeaf(verr *jsonschema.ValidationError) *jsonschema.ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 || isAnyOf(e) {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)

	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		return leaves[i].KeywordLocation < leaves[j].KeywordLocation
	})
	return leaves[0]
}

func isAnyOf(e *jsonschema.ValidationError) bool {
	return strings.HasSuffix(e.KeywordLocation, "/anyOf")
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
