package stock

import (
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
)

// Comparison lo declarado en la orden contra lo efectivamente recibido
// para una línea de recepción.
type Comparison struct {
	OrderedQty    decimal.Decimal
	ReceivedQty   decimal.Decimal
	OrderedPrice  decimal.Decimal
	ReceivedPrice decimal.Decimal
}

// Tag una divergencia detectada: dimensión más valores esperado/recibido.
type Tag struct {
	Kind     string
	Expected decimal.Decimal
	Received decimal.Decimal
}

// Detect compara cantidad y precio con igualdad exacta (política de
// tolerancia cero: cualquier diferencia, por pequeña que sea, es divergencia).
// Devuelve cero, una o dos etiquetas. Una línea sin etiquetas es limpia y se
// asienta de inmediato; con una o más queda PENDING_AUDIT sin asentar.
func Detect(c Comparison) []Tag {
	var tags []Tag
	if !c.ReceivedQty.Equal(c.OrderedQty) {
		tags = append(tags, Tag{
			Kind:     entity.DivergenceKindQuantity,
			Expected: c.OrderedQty,
			Received: c.ReceivedQty,
		})
	}
	if !c.ReceivedPrice.Equal(c.OrderedPrice) {
		tags = append(tags, Tag{
			Kind:     entity.DivergenceKindPrice,
			Expected: c.OrderedPrice,
			Received: c.ReceivedPrice,
		})
	}
	return tags
}
