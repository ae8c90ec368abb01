package ingestion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/pkg/validator"
)

// EquipmentColumns is the equipment upload header in file order. The first
// fifteen are required.
var EquipmentColumns = []string{
	"nombre_equipo",
	"tipo",
	"marca",
	"modelo",
	"version_revision",
	"nro_serie",
	"anio_fabricacion",
	"ubicacion_fisica",
	"zona",
	"sala",
	"tramo",
	"sentido",
	"pk",
	"shelter",
	"portico",
	"vida_util_estimada",
	"proximo_mantenimiento",
	"responsable_asignado",
	"proveedor_asociado",
	"observaciones",
}

const requiredEquipmentColumns = 15

// equipmentReferences pairs catalog-backed columns with their catalog.
var equipmentReferences = []struct {
	column string
	kind   domain.CatalogKind
}{
	{"tramo", domain.CatalogSegments},
	{"sentido", domain.CatalogDirections},
	{"pk", domain.CatalogMilestones},
	{"shelter", domain.CatalogShelters},
	{"portico", domain.CatalogGantries},
}

var (
	equipmentHeaderIndex = buildHeaderIndex(EquipmentColumns, map[string][]string{
		"anio_fabricacion": {"año_fabricacion", "año"},
		"nro_serie":        {"numero_serie", "n_serie"},
	})
	equipmentValidator = newEquipmentValidator()
)

func newEquipmentValidator() *validator.RowValidator {
	zero := 0
	fields := make([]validator.FieldDefinition, 0, len(EquipmentColumns))
	for i, column := range EquipmentColumns {
		field := validator.FieldDefinition{
			Name:     column,
			Type:     validator.FieldTypeText,
			Required: i < requiredEquipmentColumns,
		}
		switch column {
		case "anio_fabricacion":
			field.Type = validator.FieldTypeYear
		case "vida_util_estimada":
			field.Type = validator.FieldTypeInteger
			field.Min = &zero
		case "proximo_mantenimiento":
			field.Type = validator.FieldTypeDate
		}
		fields = append(fields, field)
	}
	return validator.NewRowValidator(fields...)
}

// buildHeaderIndex maps folded header keys onto canonical column names.
func buildHeaderIndex(columns []string, aliases map[string][]string) map[string]string {
	index := make(map[string]string, len(columns))
	for _, column := range columns {
		index[headerKey(column)] = column
		for _, alias := range aliases[column] {
			index[headerKey(alias)] = column
		}
	}
	return index
}

// validateEquipmentRow checks one row and converts it. All problems of the row
// are returned together.
func validateEquipmentRow(values map[string]string, catalogs map[domain.CatalogKind]domain.Catalog) (domain.Equipment, []string) {
	messages := equipmentValidator.ValidateRow(values).Messages()

	equipmentType, err := domain.ParseEquipmentType(values["tipo"])
	if values["tipo"] != "" && err != nil {
		messages = append(messages, fmt.Sprintf("tipo %q must be one of %s", values["tipo"], typeList()))
	}

	references := make(map[domain.CatalogKind]*uuid.UUID, len(equipmentReferences))
	for _, ref := range equipmentReferences {
		raw := values[ref.column]
		if raw == "" {
			continue
		}
		entry, ok := catalogs[ref.kind].Resolve(raw)
		if !ok {
			messages = append(messages, fmt.Sprintf("%s %q does not match any %s entry", ref.column, raw, ref.kind))
			continue
		}
		id := entry.ID
		references[ref.kind] = &id
	}

	if len(messages) > 0 {
		return domain.Equipment{}, messages
	}

	item := domain.Equipment{
		Name:             values["nombre_equipo"],
		Type:             equipmentType,
		Brand:            values["marca"],
		Model:            values["modelo"],
		Revision:         values["version_revision"],
		SerialNumber:     values["nro_serie"],
		PhysicalLocation: values["ubicacion_fisica"],
		Zone:             values["zona"],
		Room:             values["sala"],
		SegmentID:        references[domain.CatalogSegments],
		DirectionID:      references[domain.CatalogDirections],
		MilestoneID:      references[domain.CatalogMilestones],
		ShelterID:        references[domain.CatalogShelters],
		GantryID:         references[domain.CatalogGantries],
		Responsible:      values["responsable_asignado"],
		Provider:         values["proveedor_asociado"],
		Notes:            values["observaciones"],
		Status:           domain.EquipmentOperational,
	}
	item.ManufactureYear, _ = validator.ParseYear(values["anio_fabricacion"])
	if raw := values["vida_util_estimada"]; raw != "" {
		years, _ := strconv.Atoi(raw)
		item.UsefulLifeYears = &years
	}
	if raw := values["proximo_mantenimiento"]; raw != "" {
		next, _ := validator.ParseDate(raw)
		item.NextMaintenance = &next
	}
	if segment, ok := catalogs[domain.CatalogSegments].Resolve(values["tramo"]); ok {
		item.SegmentName = segment.Name
	}
	return item, nil
}

func typeList() string {
	names := make([]string, len(domain.EquipmentTypes))
	for i, t := range domain.EquipmentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
