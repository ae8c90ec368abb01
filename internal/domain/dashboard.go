package domain

// Dashboard aggregates the figures shown on the reporting page.
type Dashboard struct {
	WorkOrdersByState      map[WorkOrderState]int  `json:"work_orders_by_state"`
	EquipmentByStatus      map[EquipmentStatus]int `json:"equipment_by_status"`
	OverdueMaintenance     int                     `json:"overdue_maintenance"`
	ScheduledNextWeek      int                     `json:"scheduled_next_week"`
	AverageCompletionHours float64                 `json:"average_completion_hours"`
	CompletedLast30Days    int                     `json:"completed_last_30_days"`
}
