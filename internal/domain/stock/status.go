package stock

import "github.com/tu-usuario/compras-api/internal/domain/entity"

// MovementStatusFromCounts deriva el estado de la cabecera a partir del
// particionado de sus líneas en limpias/pendientes:
//
//	todas limpias      -> CONCLUDED
//	mezcla             -> PARTIALLY_CONCLUDED
//	todas pendientes   -> PENDING_AUDIT
//
// Máquina estrictamente hacia adelante: al resolverse la última línea
// pendiente el movimiento pasa a CONCLUDED y no vuelve atrás.
func MovementStatusFromCounts(total, pending int) string {
	switch {
	case pending == 0:
		return entity.MovementStatusConcluded
	case pending == total:
		return entity.MovementStatusPendingAudit
	default:
		return entity.MovementStatusPartiallyConcluded
	}
}

// OrderStatusForMovement deriva el estado terminal de la orden de compra.
// Con todas las líneas limpias la orden queda FINALIZED; cualquier divergencia
// la deja RECEIVED_WITH_DIVERGENCE hasta que se resuelva la última línea.
// El rechazo de una línea también finaliza: significa menos unidades en
// stock, no que la conciliación haya fracasado.
func OrderStatusForMovement(movementStatus string) string {
	if movementStatus == entity.MovementStatusConcluded {
		return entity.OrderStatusFinalized
	}
	return entity.OrderStatusReceivedWithDivergence
}
