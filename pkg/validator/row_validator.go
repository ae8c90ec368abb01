package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldType is the expected shape of a text cell.
type FieldType string

const (
	FieldTypeText    FieldType = "TEXT"
	FieldTypeInteger FieldType = "INTEGER"
	FieldTypeYear    FieldType = "YEAR"
	FieldTypeDate    FieldType = "DATE"
)

// DateLayouts lists the accepted date formats in the order they are tried.
var DateLayouts = []string{"2006-01-02", "02/01/2006"}

// FieldDefinition describes one column of an imported row.
type FieldDefinition struct {
	Name     string
	Type     FieldType
	Required bool
	// Min bounds INTEGER values from below when set.
	Min *int
	// MaxLength bounds TEXT values when positive.
	MaxLength int
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// Messages flattens the errors into display strings.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// RowValidator checks text rows against an ordered list of field definitions.
// Errors are reported in definition order.
type RowValidator struct {
	fields []FieldDefinition
}

// NewRowValidator creates a validator over fields.
func NewRowValidator(fields ...FieldDefinition) *RowValidator {
	return &RowValidator{fields: fields}
}

// Fields returns the definitions in order.
func (v *RowValidator) Fields() []FieldDefinition {
	return v.fields
}

// RequiredFields lists the names of required fields in order.
func (v *RowValidator) RequiredFields() []string {
	var names []string
	for _, field := range v.fields {
		if field.Required {
			names = append(names, field.Name)
		}
	}
	return names
}

// ValidateRow checks every defined field of values. Every problem is
// collected; validation never stops at the first failure.
func (v *RowValidator) ValidateRow(values map[string]string) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}

	for _, field := range v.fields {
		value := strings.TrimSpace(values[field.Name])

		if value == "" {
			if field.Required {
				result.IsValid = false
				result.Errors = append(result.Errors, ValidationError{
					Field:   field.Name,
					Message: fmt.Sprintf("required field '%s' is missing", field.Name),
				})
			}
			continue
		}

		if err := validateFieldType(field, value); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   field.Name,
				Message: err.Error(),
				Value:   value,
			})
		}
	}

	return result
}

func validateFieldType(field FieldDefinition, value string) error {
	switch field.Type {
	case FieldTypeText, "":
		if field.MaxLength > 0 && len([]rune(value)) > field.MaxLength {
			return fmt.Errorf("field '%s' length %d is greater than maximum %d", field.Name, len([]rune(value)), field.MaxLength)
		}
	case FieldTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("field '%s' must be an integer, got %q", field.Name, value)
		}
		if field.Min != nil && n < *field.Min {
			return fmt.Errorf("field '%s' value %d is less than minimum %d", field.Name, n, *field.Min)
		}
	case FieldTypeYear:
		if _, err := ParseYear(value); err != nil {
			return fmt.Errorf("field '%s' %v", field.Name, err)
		}
	case FieldTypeDate:
		if _, err := ParseDate(value); err != nil {
			return fmt.Errorf("field '%s' %v", field.Name, err)
		}
	default:
		return fmt.Errorf("unknown field type: %s", field.Type)
	}
	return nil
}

// ParseYear accepts exactly four digits.
func ParseYear(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if len(value) != 4 {
		return 0, fmt.Errorf("must be a 4-digit year, got %q", raw)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("must be a 4-digit year, got %q", raw)
		}
	}
	year, _ := strconv.Atoi(value)
	return year, nil
}

// ParseDate accepts YYYY-MM-DD or DD/MM/YYYY.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range DateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("must be a date in YYYY-MM-DD or DD/MM/YYYY format, got %q", raw)
}
