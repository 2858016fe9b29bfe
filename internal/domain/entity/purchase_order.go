package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados terminales que el propagador escribe sobre la orden de compra.
// El resto del ciclo de vida de la orden pertenece al servicio de compras.
const (
	OrderStatusFinalized              = "FINALIZED"
	OrderStatusReceivedWithDivergence = "RECEIVED_WITH_DIVERGENCE"
	OrderStatusCancelled              = "CANCELLED"
)

// PurchaseOrder es la orden de compra referenciada por una recepción.
// Entidad externa: este módulo solo lee sus líneas y reescribe su estado.
type PurchaseOrder struct {
	ID         string
	SupplierID string
	Status     string
	CreatedAt  time.Time
}

// PurchaseOrderLine lo declarado en la orden: cantidad y precio unitario
// esperados por ítem, contra los que se compara la recepción.
type PurchaseOrderLine struct {
	OrderID   string
	ItemID    string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}
