package ingestion

import (
	"fmt"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/pkg/validator"
)

// PlanColumns are the canonical annual plan columns.
var PlanColumns = []string{"anio", "actividad", "equipo", "responsable", "fecha_inicio", "fecha_termino"}

var planAliases = map[string][]string{
	"anio":          {"año", "ano", "year"},
	"fecha_inicio":  {"fechaInicio", "Fecha Inicio", "inicio"},
	"fecha_termino": {"fechaTermino", "Fecha Término", "fecha_fin", "termino"},
}

var (
	planHeaderIndex = buildHeaderIndex(PlanColumns, planAliases)
	planValidator   = validator.NewRowValidator(
		validator.FieldDefinition{Name: "anio", Type: validator.FieldTypeYear, Required: true},
		validator.FieldDefinition{Name: "actividad", Type: validator.FieldTypeText, Required: true},
		validator.FieldDefinition{Name: "equipo", Type: validator.FieldTypeText, Required: true},
		validator.FieldDefinition{Name: "responsable", Type: validator.FieldTypeText, Required: true},
		validator.FieldDefinition{Name: "fecha_inicio", Type: validator.FieldTypeDate, Required: true},
		validator.FieldDefinition{Name: "fecha_termino", Type: validator.FieldTypeDate, Required: true},
	)
)

func validatePlanRow(values map[string]string, sourceFile string) (domain.PlanActivity, []string) {
	result := planValidator.ValidateRow(values)
	if !result.IsValid {
		return domain.PlanActivity{}, result.Messages()
	}

	year, _ := validator.ParseYear(values["anio"])
	start, _ := validator.ParseDate(values["fecha_inicio"])
	end, _ := validator.ParseDate(values["fecha_termino"])
	if end.Before(start) {
		return domain.PlanActivity{}, []string{
			fmt.Sprintf("fecha_termino %s is before fecha_inicio %s", values["fecha_termino"], values["fecha_inicio"]),
		}
	}

	return domain.PlanActivity{
		Year:        year,
		Activity:    values["actividad"],
		Equipment:   values["equipo"],
		Responsible: values["responsable"],
		StartDate:   start,
		EndDate:     end,
		SourceFile:  sourceFile,
	}, nil
}
