package repository

import "github.com/tu-usuario/compras-api/internal/domain/entity"

// AuditLogRepository puerto append-only de la bitácora. El núcleo escribe una
// entrada por operación completada y nunca la consulta.
type AuditLogRepository interface {
	Append(entry *entity.AuditEntry) error
}
