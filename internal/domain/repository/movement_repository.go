package repository

import (
	"time"

	"github.com/tu-usuario/compras-api/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia para movimientos de
// stock y sus líneas (se crean como una sola unidad dentro de la transacción).
type MovementRepository interface {
	Create(movement *entity.Movement) error
	CreateLine(line *entity.MovementLine) error
	GetByID(id string) (*entity.Movement, error)
	// GetForUpdate obtiene la cabecera y bloquea su fila (SELECT FOR UPDATE):
	// todas las resoluciones de líneas del mismo movimiento se serializan en
	// este bloqueo, no solo las de la misma línea.
	GetForUpdate(id string) (*entity.Movement, error)
	GetLineByID(id string) (*entity.MovementLine, error)
	// GetLineForUpdate bloquea la fila de la línea (SELECT FOR UPDATE) durante
	// la resolución para serializar auditores concurrentes.
	GetLineForUpdate(id string) (*entity.MovementLine, error)
	ListLines(movementID string) ([]*entity.MovementLine, error)
	// CountPendingLines cuenta las líneas hermanas aún PENDING_AUDIT; debe
	// ejecutarse en la misma transacción que la resolución que dispara el cierre.
	CountPendingLines(movementID string) (int, error)
	UpdateStatus(id, status string) error
	UpdateLineStatus(id, status string) error
	// ExistsActiveReceipt indica si la orden ya tiene una recepción no cancelada.
	ExistsActiveReceipt(purchaseOrderID string) (bool, error)
	ListByBranch(branchID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error)
}
