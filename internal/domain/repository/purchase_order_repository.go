package repository

import "github.com/tu-usuario/compras-api/internal/domain/entity"

// PurchaseOrderRepository puerto de solo lectura sobre la orden de compra más
// la escritura de estado que empuja el propagador. El ciclo de vida previo de
// la orden (requisición, cotización) pertenece al servicio de compras.
type PurchaseOrderRepository interface {
	GetByID(id string) (*entity.PurchaseOrder, error)
	ListLines(orderID string) ([]*entity.PurchaseOrderLine, error)
	UpdateStatus(id, status string) error
}
