package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// workOrderFields lists the audited work order columns with an accessor for
// each. Keys are the storage column names so history rows read the same way the
// table does.
var workOrderFields = []struct {
	column string
	value  func(WorkOrder) any
}{
	{"fecha_programada", func(w WorkOrder) any { return w.ScheduledDate }},
	{"sitio", func(w WorkOrder) any { return w.Site }},
	{"tramo", func(w WorkOrder) any { return w.Segment }},
	{"ubicacion", func(w WorkOrder) any { return w.Location }},
	{"equipo_id", func(w WorkOrder) any { return w.EquipmentID }},
	{"tipo_equipo", func(w WorkOrder) any { return w.EquipmentType }},
	{"tipo_mantenimiento", func(w WorkOrder) any { return w.MaintenanceType }},
	{"frecuencia", func(w WorkOrder) any { return w.Frequency }},
	{"proveedor", func(w WorkOrder) any { return w.Provider }},
	{"criticidad", func(w WorkOrder) any { return w.Criticality }},
	{"tecnico_asignado", func(w WorkOrder) any { return w.Technician }},
	{"descripcion", func(w WorkOrder) any { return w.Description }},
	{"observaciones", func(w WorkOrder) any { return w.Observations }},
	{"nota_cierre", func(w WorkOrder) any { return w.ClosingNote }},
	{"estado", func(w WorkOrder) any { return w.State }},
	{"fecha_inicio", func(w WorkOrder) any { return w.StartTime }},
	{"fecha_fin", func(w WorkOrder) any { return w.EndTime }},
}

// DiffWorkOrders returns the audited fields whose value differs between before
// and after. Unchanged fields are omitted, so an empty map means no change.
func DiffWorkOrders(before, after WorkOrder) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for _, field := range workOrderFields {
		oldValue := normalizeAuditValue(field.value(before))
		newValue := normalizeAuditValue(field.value(after))
		if oldValue == newValue {
			continue
		}
		changes[field.column] = FieldChange{Old: oldValue, New: newValue}
	}
	return changes
}

// ChangedColumns returns the sorted keys of a change map.
func ChangedColumns(changes map[string]FieldChange) []string {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizeAuditValue renders values into comparable, JSON friendly forms. Nil
// pointers become nil so "unset" and "unset" compare equal.
func normalizeAuditValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return v
	case WorkOrderState:
		return string(v)
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return normalizeAuditValue(*v)
	case uuid.UUID:
		return v.String()
	case *uuid.UUID:
		if v == nil {
			return nil
		}
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
