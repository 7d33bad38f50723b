package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType discriminates the value slot of a dynamic field.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeJSON    FieldType = "json"
)

// Valid reports whether t is one of the five supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeBoolean, FieldTypeDate, FieldTypeJSON:
		return true
	}
	return false
}

// FieldValue is a tagged union: exactly the slot matching Type is meaningful.
// Storage keeps one column per slot; this type removes the "which column is
// populated" ambiguity from everything above the repository layer.
type FieldValue struct {
	Type    FieldType
	Text    string
	Number  decimal.Decimal
	Boolean bool
	Date    time.Time
	JSON    json.RawMessage
}

// TextValue builds a text field value.
func TextValue(s string) FieldValue { return FieldValue{Type: FieldTypeText, Text: s} }

// NumberValue builds a numeric field value.
func NumberValue(d decimal.Decimal) FieldValue { return FieldValue{Type: FieldTypeNumber, Number: d} }

// BooleanValue builds a boolean field value.
func BooleanValue(b bool) FieldValue { return FieldValue{Type: FieldTypeBoolean, Boolean: b} }

// DateValue builds a date field value.
func DateValue(t time.Time) FieldValue { return FieldValue{Type: FieldTypeDate, Date: t} }

// JSONValue builds a JSON document field value.
func JSONValue(raw json.RawMessage) FieldValue { return FieldValue{Type: FieldTypeJSON, JSON: raw} }

type fieldValueJSON struct {
	Type    FieldType        `json:"type"`
	Text    *string          `json:"text,omitempty"`
	Number  *decimal.Decimal `json:"number,omitempty"`
	Boolean *bool            `json:"boolean,omitempty"`
	Date    *time.Time       `json:"date,omitempty"`
	JSON    json.RawMessage  `json:"json,omitempty"`
}

// MarshalJSON emits the discriminator plus only the populated slot.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	out := fieldValueJSON{Type: v.Type}
	switch v.Type {
	case FieldTypeText:
		out.Text = &v.Text
	case FieldTypeNumber:
		out.Number = &v.Number
	case FieldTypeBoolean:
		out.Boolean = &v.Boolean
	case FieldTypeDate:
		out.Date = &v.Date
	case FieldTypeJSON:
		out.JSON = v.JSON
	default:
		return nil, fmt.Errorf("unknown field type %q", v.Type)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the discriminator and requires the matching slot.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var in fieldValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case FieldTypeText:
		if in.Text == nil {
			return fmt.Errorf("field type %q requires a text value", in.Type)
		}
		*v = TextValue(*in.Text)
	case FieldTypeNumber:
		if in.Number == nil {
			return fmt.Errorf("field type %q requires a number value", in.Type)
		}
		*v = NumberValue(*in.Number)
	case FieldTypeBoolean:
		if in.Boolean == nil {
			return fmt.Errorf("field type %q requires a boolean value", in.Type)
		}
		*v = BooleanValue(*in.Boolean)
	case FieldTypeDate:
		if in.Date == nil {
			return fmt.Errorf("field type %q requires a date value", in.Type)
		}
		*v = DateValue(*in.Date)
	case FieldTypeJSON:
		if len(in.JSON) == 0 {
			return fmt.Errorf("field type %q requires a json value", in.Type)
		}
		*v = JSONValue(in.JSON)
	default:
		return fmt.Errorf("unknown field type %q", in.Type)
	}
	return nil
}

// Equal reports whether two field values have the same type and content.
// Numbers compare by decimal equality, JSON by exact bytes.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case FieldTypeText:
		return v.Text == o.Text
	case FieldTypeNumber:
		return v.Number.Equal(o.Number)
	case FieldTypeBoolean:
		return v.Boolean == o.Boolean
	case FieldTypeDate:
		return v.Date.Equal(o.Date)
	case FieldTypeJSON:
		return string(v.JSON) == string(o.JSON)
	}
	return false
}

// DynamicField is one typed attribute attached to exactly one entity, used in
// place of per-domain columns. (entity_id, field_name) is unique.
type DynamicField struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	EntityID       uuid.UUID  `json:"entity_id"`
	FieldName      string     `json:"field_name"`
	Value          FieldValue `json:"value"`
	SmartCode      string     `json:"smart_code"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DynamicFieldInput is the write shape accepted by the entity engine.
type DynamicFieldInput struct {
	FieldName string     `json:"field_name"`
	Value     FieldValue `json:"value"`
	SmartCode string     `json:"smart_code"`
}
