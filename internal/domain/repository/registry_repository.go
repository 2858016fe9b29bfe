package repository

import "github.com/tu-usuario/compras-api/internal/domain/entity"

// BranchRepository puerto de solo lectura sobre sucursales (validar existencia).
type BranchRepository interface {
	GetByID(id string) (*entity.Branch, error)
}

// ItemRepository puerto de solo lectura sobre ítems (validar existencia).
type ItemRepository interface {
	GetByID(id string) (*entity.Item, error)
}
