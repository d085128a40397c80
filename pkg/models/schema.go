package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidFields is wrapped by every FieldsError.
var ErrInvalidFields = errors.New("error in request data")

// FieldRule declares how a field of an entity payload is checked.
type FieldRule struct {
	Mandatory  bool
	AllowEmpty bool
}

// Schema maps a payload field name to its rule. Schemas are static per entity.
type Schema map[string]FieldRule

// Entity schemas consulted when a request body is accepted.
var (
	SequenceSchema = Schema{
		"challenge_id": {Mandatory: true},
		"user_id":      {},
		"actions":      {},
	}

	SequenceUpdateSchema = Schema{
		"challenge_id": {},
		"actions":      {},
	}

	PinSchema = Schema{
		"material_type": {Mandatory: true},
		"material_id":   {Mandatory: true},
		"action":        {Mandatory: true},
	}

	ChallengeSchema = Schema{
		"title":       {Mandatory: true},
		"end_date":    {Mandatory: true},
		"description": {AllowEmpty: true},
		"active":      {Mandatory: true},
	}

	CommentSchema = Schema{
		"comment": {Mandatory: true},
	}
)

// FieldsError lists the fields of a payload that break its schema.
type FieldsError struct {
	MissingFields         []string `json:"missing_fields,omitempty"`
	EmptyNotAllowedFields []string `json:"empty_not_allowed_fields,omitempty"`
}

func (e *FieldsError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.MissingFields, ", "))
	}

	if len(e.EmptyNotAllowedFields) > 0 {
		parts = append(parts, "empty fields not allowed: "+strings.Join(e.EmptyNotAllowedFields, ", "))
	}

	return fmt.Sprintf("%s: %s", ErrInvalidFields, strings.Join(parts, "; "))
}

func (e *FieldsError) Unwrap() error {
	return ErrInvalidFields
}

// Check validates data against the schema: mandatory fields must be present and fields that do not
// allow empty values must not be the empty string.
func (s Schema) Check(data map[string]any) error {
	fieldsErr := &FieldsError{}

	for field, rule := range s {
		value, present := data[field]
		if rule.Mandatory && (!present || value == nil) {
			fieldsErr.MissingFields = append(fieldsErr.MissingFields, field)

			continue
		}

		if !rule.AllowEmpty && present {
			if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
				fieldsErr.EmptyNotAllowedFields = append(fieldsErr.EmptyNotAllowedFields, field)
			}
		}
	}

	if len(fieldsErr.MissingFields) == 0 && len(fieldsErr.EmptyNotAllowedFields) == 0 {
		return nil
	}

	sort.Strings(fieldsErr.MissingFields)
	sort.Strings(fieldsErr.EmptyNotAllowedFields)

	return fieldsErr
}

// JSONSchema represents a JSON Schema used to validate request payloads.
type JSONSchema struct {
	Type       string               `json:"type"`
	Items      *Property            `json:"items,omitempty"`
	Properties map[string]*Property `json:"properties,omitempty"`
	Required   []string             `json:"required,omitempty"`
	Title      string               `json:"title,omitempty"`
}

// Property represents a JSON Schema property.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// ActionsSchema describes the wire shape of a sequence action list. The action type is not restricted
// to the known values: unknown actions are accepted and skipped by the compiler.
var ActionsSchema = &JSONSchema{
	Type:  "array",
	Title: "Sequence actions",
	Items: &Property{
		Type:     "object",
		Required: []string{"type"},
		Properties: map[string]*Property{
			"position": {Type: "integer", Description: "Execution order hint"},
			"type":     {Type: "string", Description: "Action type"},
			"param":    {Type: "object", Description: "Type specific parameters"},
		},
	},
}

// ValidateActions checks a decoded JSON value against ActionsSchema.
func ValidateActions(actions any) error {
	if actions == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ActionsSchema),
		gojsonschema.NewGoLoader(actions),
	)
	if err != nil {
		return fmt.Errorf("failed to validate actions: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("%w: invalid actions: %s", ErrInvalidFields, strings.Join(errs, "; "))
	}

	return nil
}
