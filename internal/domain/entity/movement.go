package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementKindReceipt   = "RECEIPT"    // recepción de orden de compra
	MovementKindManualIn  = "MANUAL_IN"  // entrada manual
	MovementKindManualOut = "MANUAL_OUT" // salida manual
	MovementKindTransfer  = "TRANSFER"   // traslado entre sucursales
)

// Estados del movimiento (cabecera). CONCLUDED y CANCELLED son terminales;
// PENDING_AUDIT y PARTIALLY_CONCLUDED solo avanzan hacia CONCLUDED.
const (
	MovementStatusConcluded          = "CONCLUDED"
	MovementStatusPartiallyConcluded = "PARTIALLY_CONCLUDED"
	MovementStatusPendingAudit       = "PENDING_AUDIT"
	MovementStatusCancelled          = "CANCELLED"
)

// Estados de una línea de movimiento.
const (
	LineStatusConcluded    = "CONCLUDED"
	LineStatusPendingAudit = "PENDING_AUDIT"
)

// Movement representa un evento físico de stock (cabecera). Nunca se elimina:
// es el rastro de auditoría. El estado lo muta únicamente el resolutor de
// divergencias, nunca una edición directa del usuario.
type Movement struct {
	ID              string
	Kind            string
	PurchaseOrderID *string // solo RECEIPT
	BranchID        *string // sucursal (origen en TRANSFER); nullable en RECEIPT sin ruteo
	DestBranchID    *string // solo TRANSFER
	UserID          string
	Note            string
	InvoiceNumber   *string
	InvoiceKey      *string // clave de acceso de la factura del proveedor
	InvoiceIssuedAt *time.Time
	Status          string
	CreatedAt       time.Time
}

// MovementLine es un ítem afectado por un Movement. Se crea de forma atómica
// con su cabecera y nunca de forma independiente.
// Invariante: CONCLUDED si y solo si la cantidad ya se asentó en el ledger o
// la línea nunca fue elegible para divergencia (manual/traslado).
type MovementLine struct {
	ID         string
	MovementID string
	ItemID     string
	Quantity   decimal.Decimal  // firmada: negativa en salidas
	UnitPrice  *decimal.Decimal // nullable en salidas/manuales
	Status     string
	CreatedAt  time.Time
}
