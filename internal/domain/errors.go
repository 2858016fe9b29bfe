package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrJustificationRequired = errors.New("justificación requerida para rechazar")
)

// DuplicateReceiptError indica que ya existe una recepción no cancelada para
// la orden de compra: una orden se recibe exactamente una vez.
type DuplicateReceiptError struct {
	PurchaseOrderID string
}

func (e *DuplicateReceiptError) Error() string {
	return fmt.Sprintf("la orden de compra %s ya tiene una recepción registrada", e.PurchaseOrderID)
}

// InsufficientStockError indica que una salida excede el saldo de la sucursal.
// Nombra el ítem y el faltante; la transacción completa se revierte.
type InsufficientStockError struct {
	ItemID    string
	BranchID  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente del ítem %s en sucursal %s: solicitado %s, disponible %s (faltan %s)",
		e.ItemID, e.BranchID, e.Requested, e.Available, e.Shortfall())
}

// Shortfall devuelve cuántas unidades faltan para cubrir la salida.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// AlreadyResolvedError indica que la línea ya no está PENDING_AUDIT. Se
// rechaza en vez de aceptarse en silencio para impedir doble asiento por
// reintentos o auditores concurrentes.
type AlreadyResolvedError struct {
	LineID string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("la línea %s ya fue resuelta", e.LineID)
}
