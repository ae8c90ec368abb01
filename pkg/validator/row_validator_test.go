package validator

import (
	"testing"
	"time"
)

func TestRowValidatorCollectsEveryError(t *testing.T) {
	zero := 0
	v := NewRowValidator(
		FieldDefinition{Name: "nombre", Type: FieldTypeText, Required: true},
		FieldDefinition{Name: "anio", Type: FieldTypeYear, Required: true},
		FieldDefinition{Name: "vida_util", Type: FieldTypeInteger, Min: &zero},
		FieldDefinition{Name: "proximo", Type: FieldTypeDate},
	)

	result := v.ValidateRow(map[string]string{
		"nombre":    "  ",
		"anio":      "98",
		"vida_util": "-1",
		"proximo":   "2024/01/31",
	})
	if result.IsValid {
		t.Fatalf("expected row to be invalid")
	}
	if len(result.Errors) != 4 {
		t.Fatalf("expected 4 errors, got %d: %+v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Field != "nombre" || result.Errors[3].Field != "proximo" {
		t.Fatalf("errors not in definition order: %+v", result.Errors)
	}
}

func TestRowValidatorSkipsBlankOptionalFields(t *testing.T) {
	v := NewRowValidator(
		FieldDefinition{Name: "nombre", Type: FieldTypeText, Required: true},
		FieldDefinition{Name: "proximo", Type: FieldTypeDate},
	)

	result := v.ValidateRow(map[string]string{"nombre": "UPS"})
	if !result.IsValid {
		t.Fatalf("expected row to be valid, got %+v", result.Errors)
	}
	if got := v.RequiredFields(); len(got) != 1 || got[0] != "nombre" {
		t.Fatalf("unexpected required fields %v", got)
	}
}

func TestParseDateAcceptsBothLayouts(t *testing.T) {
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-09", "09/03/2024", " 2024-03-09 "} {
		got, err := ParseDate(raw)
		if err != nil {
			t.Fatalf("ParseDate(%q) returned error: %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseDate("03-09-2024"); err == nil {
		t.Fatalf("expected unsupported layout to fail")
	}
}

func TestParseYear(t *testing.T) {
	if year, err := ParseYear("2019"); err != nil || year != 2019 {
		t.Fatalf("ParseYear(2019) = %d, %v", year, err)
	}
	for _, raw := range []string{"19", "20190", "2O19", ""} {
		if _, err := ParseYear(raw); err == nil {
			t.Fatalf("expected ParseYear(%q) to fail", raw)
		}
	}
}
