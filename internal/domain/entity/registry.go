package entity

import "time"

// Branch sucursal/almacén destino u origen de movimientos. Registro externo:
// este módulo solo valida existencia.
type Branch struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Item producto del catálogo. Registro externo: solo validación de existencia.
type Item struct {
	ID        string
	SKU       string
	Name      string
	CreatedAt time.Time
}
