package entity

import "time"

// Acciones registradas en la bitácora.
const (
	AuditActionMovementCreated = "MOVEMENT_CREATED"
	AuditActionLineResolved    = "LINE_RESOLVED"
)

// AuditEntry entrada append-only de la bitácora de auditoría. El núcleo la
// escribe en la misma transacción de la operación y nunca la vuelve a leer.
type AuditEntry struct {
	ID        string
	Action    string
	UserID    string
	RefID     string // movimiento o línea según la acción
	Detail    string
	CreatedAt time.Time
}
