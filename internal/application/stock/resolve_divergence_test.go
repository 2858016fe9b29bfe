package stock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/compras-api/internal/application/stock"
	"github.com/tu-usuario/compras-api/internal/domain"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
)

func newResolver(s *memStore) *stock.ResolveDivergenceUseCase {
	return stock.NewResolveDivergenceUseCase(&memTxRunner{s}, nil)
}

// receiptWithDivergence registra la recepción del escenario de referencia:
// ítem A limpio (10 @ 5.00), ítem B con 3 de 4 ordenados. Devuelve el ID del
// movimiento y la línea pendiente de B.
func receiptWithDivergence(t *testing.T, s *memStore) (string, *entity.MovementLine) {
	t.Helper()
	s.addBranchEntity("sucursal-1")
	s.addItem("item-a")
	s.addItem("item-b")
	s.addOrder("orden-1",
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-a", Quantity: dec("10"), UnitPrice: dec("5.00")},
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-b", Quantity: dec("4"), UnitPrice: dec("2.00")},
	)
	res, err := newRecorder(s).RecordReceipt(context.Background(), stock.ReceiptInput{
		PurchaseOrderID: "orden-1",
		BranchID:        strPtr("sucursal-1"),
		UserID:          "user-1",
		Lines: []stock.ReceiptLineInput{
			{ItemID: "item-a", Quantity: dec("10"), UnitPrice: dec("5.00")},
			{ItemID: "item-b", Quantity: dec("3"), UnitPrice: dec("2.00")},
		},
	})
	require.NoError(t, err)
	require.True(t, res.HasDivergence)
	lineB := lineByItem(s, "item-b")
	require.Equal(t, entity.LineStatusPendingAudit, lineB.Status)
	return res.MovementID, lineB
}

// Aprobar la línea de B asienta sus 3 unidades y, al ser la última pendiente,
// cierra el movimiento (CONCLUDED) y finaliza la orden (FINALIZED).
func TestResolve_AprobarUltimaLineaCierraMovimientoYOrden(t *testing.T) {
	s := newMemStore()
	movID, lineB := receiptWithDivergence(t, s)
	uc := newResolver(s)

	res, err := uc.Resolve(context.Background(), stock.ResolveInput{
		LineID:  lineB.ID,
		UserID:  "auditor-1",
		Approve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.LineStatusConcluded, res.LineStatus)
	assert.Equal(t, entity.MovementStatusConcluded, res.MovementStatus)
	require.NotNil(t, res.OrderStatus)
	assert.Equal(t, entity.OrderStatusFinalized, *res.OrderStatus)

	assert.True(t, s.globalBal["item-b"].Equal(dec("3")), "la aprobación asienta la cantidad recibida")
	assert.True(t, s.branchBal[balKey("sucursal-1", "item-b")].Equal(dec("3")))
	assert.Equal(t, entity.MovementStatusConcluded, s.movements[movID].Status)
	assert.Equal(t, entity.OrderStatusFinalized, s.orders["orden-1"].Status)

	divs, _ := (&memDivRepo{s}).ListByLine(lineB.ID)
	require.Len(t, divs, 1)
	assert.Equal(t, entity.ResolutionApproved, divs[0].Status)
	require.NotNil(t, divs[0].ResolvedBy)
	assert.Equal(t, "auditor-1", *divs[0].ResolvedBy)
	require.NotNil(t, divs[0].ResolvedAt)
}

// El rechazo también concluye la línea y cierra el movimiento, pero no asienta
// nada: menos unidades en stock, no una conciliación fallida.
func TestResolve_RechazarNoAsienta(t *testing.T) {
	s := newMemStore()
	movID, lineB := receiptWithDivergence(t, s)
	uc := newResolver(s)

	res, err := uc.Resolve(context.Background(), stock.ResolveInput{
		LineID:        lineB.ID,
		UserID:        "auditor-1",
		Approve:       false,
		Justification: "faltante confirmado con el proveedor",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConcluded, res.MovementStatus)

	assert.True(t, s.globalBal["item-b"].IsZero(), "el rechazo nunca toca el ledger")
	assert.Equal(t, entity.LineStatusConcluded, s.lines[lineB.ID].Status, "la línea rechazada queda resuelta, no abierta")
	assert.Equal(t, entity.MovementStatusConcluded, s.movements[movID].Status)
	assert.Equal(t, entity.OrderStatusFinalized, s.orders["orden-1"].Status,
		"el rechazo también finaliza la orden")

	divs, _ := (&memDivRepo{s}).ListByLine(lineB.ID)
	assert.Equal(t, entity.ResolutionRejected, divs[0].Status)
	require.NotNil(t, divs[0].Justification)
}

func TestResolve_RechazoSinJustificacion(t *testing.T) {
	s := newMemStore()
	_, lineB := receiptWithDivergence(t, s)
	uc := newResolver(s)

	_, err := uc.Resolve(context.Background(), stock.ResolveInput{
		LineID:        lineB.ID,
		UserID:        "auditor-1",
		Approve:       false,
		Justification: "   ",
	})
	require.ErrorIs(t, err, domain.ErrJustificationRequired)
	assert.Equal(t, entity.LineStatusPendingAudit, s.lines[lineB.ID].Status, "nada cambió")
}

// Exactamente una vez: la segunda resolución (reintento u otro auditor) falla
// con AlreadyResolvedError y el ledger conserva un único asiento.
func TestResolve_SegundaResolucionFalla(t *testing.T) {
	s := newMemStore()
	_, lineB := receiptWithDivergence(t, s)
	uc := newResolver(s)

	_, err := uc.Resolve(context.Background(), stock.ResolveInput{LineID: lineB.ID, UserID: "auditor-1", Approve: true})
	require.NoError(t, err)

	_, err = uc.Resolve(context.Background(), stock.ResolveInput{LineID: lineB.ID, UserID: "auditor-2", Approve: true})
	var already *domain.AlreadyResolvedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, lineB.ID, already.LineID)
	assert.True(t, s.globalBal["item-b"].Equal(dec("3")), "un único asiento pese al reintento")
}

// Con dos líneas divergentes, resolver la primera deja el movimiento abierto;
// la segunda lo cierra, en cualquier orden.
func TestResolve_UltimaLineaCierraUnaSolaVez(t *testing.T) {
	s := newMemStore()
	s.addItem("item-a")
	s.addItem("item-b")
	s.addOrder("orden-1",
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-a", Quantity: dec("10"), UnitPrice: dec("5.00")},
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-b", Quantity: dec("4"), UnitPrice: dec("2.00")},
	)
	recRes, err := newRecorder(s).RecordReceipt(context.Background(), stock.ReceiptInput{
		PurchaseOrderID: "orden-1",
		UserID:          "user-1",
		Lines: []stock.ReceiptLineInput{
			{ItemID: "item-a", Quantity: dec("9"), UnitPrice: dec("5.00")},
			{ItemID: "item-b", Quantity: dec("3"), UnitPrice: dec("2.00")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, entity.MovementStatusPendingAudit, s.movements[recRes.MovementID].Status)

	uc := newResolver(s)
	first, err := uc.Resolve(context.Background(), stock.ResolveInput{
		LineID: lineByItem(s, "item-b").ID, UserID: "auditor-1", Approve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusPendingAudit, first.MovementStatus, "aún queda una hermana pendiente")
	assert.Nil(t, first.OrderStatus)
	assert.Equal(t, entity.OrderStatusReceivedWithDivergence, s.orders["orden-1"].Status)

	second, err := uc.Resolve(context.Background(), stock.ResolveInput{
		LineID: lineByItem(s, "item-a").ID, UserID: "auditor-2", Approve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConcluded, second.MovementStatus)
	assert.Equal(t, entity.OrderStatusFinalized, s.orders["orden-1"].Status)
}

// Dos auditores resuelven las dos últimas líneas pendientes del mismo
// movimiento en transacciones concurrentes. El bloqueo de la cabecera las
// serializa: quien llega segundo cuenta hermanas viendo ya la resolución
// confirmada del primero, así que exactamente una de las dos resoluciones
// cierra el movimiento y finaliza la orden. Sin ese bloqueo, cada transacción
// vería la hermana del otro aún pendiente y el movimiento quedaría abierto
// para siempre.
func TestResolve_AuditoresConcurrentesCierranUnaVez(t *testing.T) {
	s := newMemStore()
	s.addItem("item-a")
	s.addItem("item-b")
	s.addOrder("orden-1",
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-a", Quantity: dec("10"), UnitPrice: dec("5.00")},
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-b", Quantity: dec("4"), UnitPrice: dec("2.00")},
	)
	recRes, err := newRecorder(s).RecordReceipt(context.Background(), stock.ReceiptInput{
		PurchaseOrderID: "orden-1",
		UserID:          "user-1",
		Lines: []stock.ReceiptLineInput{
			{ItemID: "item-a", Quantity: dec("9"), UnitPrice: dec("5.00")},
			{ItemID: "item-b", Quantity: dec("3"), UnitPrice: dec("2.00")},
		},
	})
	require.NoError(t, err)
	lineAID := lineByItem(s, "item-a").ID
	lineBID := lineByItem(s, "item-b").ID

	ls := newLockedStore(s)
	uc := stock.NewResolveDivergenceUseCase(&lockedTxRunner{ls}, nil)

	results := make([]*stock.ResolveResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = uc.Resolve(context.Background(), stock.ResolveInput{
			LineID: lineAID, UserID: "auditor-1", Approve: true,
		})
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = uc.Resolve(context.Background(), stock.ResolveInput{
			LineID: lineBID, UserID: "auditor-2", Approve: true,
		})
	}()
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	closed := 0
	for _, res := range results {
		if res.MovementStatus == entity.MovementStatusConcluded {
			closed++
			require.NotNil(t, res.OrderStatus)
			assert.Equal(t, entity.OrderStatusFinalized, *res.OrderStatus)
		}
	}
	assert.Equal(t, 1, closed, "exactamente una resolución cierra el movimiento")

	assert.Equal(t, entity.MovementStatusConcluded, s.movements[recRes.MovementID].Status)
	assert.Equal(t, entity.LineStatusConcluded, s.lines[lineAID].Status)
	assert.Equal(t, entity.LineStatusConcluded, s.lines[lineBID].Status)
	assert.Equal(t, entity.OrderStatusFinalized, s.orders["orden-1"].Status)
	assert.True(t, s.globalBal["item-a"].Equal(dec("9")))
	assert.True(t, s.globalBal["item-b"].Equal(dec("3")))
}

// La cantidad aprobada se redondea a la unidad entera del ledger.
func TestResolve_AprobarRedondeaACantidadEntera(t *testing.T) {
	s := newMemStore()
	s.addItem("item-a")
	s.addOrder("orden-1",
		&entity.PurchaseOrderLine{OrderID: "orden-1", ItemID: "item-a", Quantity: dec("4"), UnitPrice: dec("2.00")},
	)
	_, err := newRecorder(s).RecordReceipt(context.Background(), stock.ReceiptInput{
		PurchaseOrderID: "orden-1",
		UserID:          "user-1",
		Lines:           []stock.ReceiptLineInput{{ItemID: "item-a", Quantity: dec("3.6"), UnitPrice: dec("2.00")}},
	})
	require.NoError(t, err)

	_, err = newResolver(s).Resolve(context.Background(), stock.ResolveInput{
		LineID: lineByItem(s, "item-a").ID, UserID: "auditor-1", Approve: true,
	})
	require.NoError(t, err)
	assert.True(t, s.globalBal["item-a"].Equal(dec("4")), "3.6 se redondea a 4")
}

func TestResolve_LineaInexistente(t *testing.T) {
	s := newMemStore()
	uc := newResolver(s)
	_, err := uc.Resolve(context.Background(), stock.ResolveInput{LineID: "no-existe", UserID: "auditor-1", Approve: true})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// Resolver una línea no afecta los asientos ni el estado de sus hermanas.
func TestResolve_NoTocaLineasHermanas(t *testing.T) {
	s := newMemStore()
	_, lineB := receiptWithDivergence(t, s)

	globalA := s.globalBal["item-a"]
	_, err := newResolver(s).Resolve(context.Background(), stock.ResolveInput{
		LineID: lineB.ID, UserID: "auditor-1", Approve: true,
	})
	require.NoError(t, err)
	assert.True(t, s.globalBal["item-a"].Equal(globalA))
	assert.Equal(t, entity.LineStatusConcluded, lineByItem(s, "item-a").Status)
}
