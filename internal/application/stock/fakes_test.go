package stock_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los repositorios, con semántica transaccional real: el
// TxRunner toma un snapshot del estado y lo restaura si el callback falla, así
// los tests verifican que un error deja el ledger intacto (rollback completo).
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	movements  map[string]*entity.Movement
	lines      map[string]*entity.MovementLine
	divs       map[string]*entity.DivergenceRecord
	branchBal  map[string]decimal.Decimal // "branch|item"
	globalBal  map[string]decimal.Decimal
	orders     map[string]*entity.PurchaseOrder
	orderLines map[string][]*entity.PurchaseOrderLine
	branches   map[string]*entity.Branch
	items      map[string]*entity.Item
	audits     []*entity.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		movements:  map[string]*entity.Movement{},
		lines:      map[string]*entity.MovementLine{},
		divs:       map[string]*entity.DivergenceRecord{},
		branchBal:  map[string]decimal.Decimal{},
		globalBal:  map[string]decimal.Decimal{},
		orders:     map[string]*entity.PurchaseOrder{},
		orderLines: map[string][]*entity.PurchaseOrderLine{},
		branches:   map[string]*entity.Branch{},
		items:      map[string]*entity.Item{},
	}
}

func balKey(branchID, itemID string) string { return branchID + "|" + itemID }

func (s *memStore) addBranchEntity(id string) { s.branches[id] = &entity.Branch{ID: id, Name: id} }
func (s *memStore) addItem(id string)         { s.items[id] = &entity.Item{ID: id, SKU: id, Name: id} }

func (s *memStore) addOrder(id string, lines ...*entity.PurchaseOrderLine) {
	s.orders[id] = &entity.PurchaseOrder{ID: id, Status: "APPROVED"}
	s.orderLines[id] = lines
}

func (s *memStore) setBranchBalance(branchID, itemID string, qty decimal.Decimal) {
	s.branchBal[balKey(branchID, itemID)] = qty
	s.globalBal[itemID] = s.globalBal[itemID].Add(qty)
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.movements {
		cp := *v
		c.movements[k] = &cp
	}
	for k, v := range s.lines {
		cp := *v
		c.lines[k] = &cp
	}
	for k, v := range s.divs {
		cp := *v
		c.divs[k] = &cp
	}
	for k, v := range s.branchBal {
		c.branchBal[k] = v
	}
	for k, v := range s.globalBal {
		c.globalBal[k] = v
	}
	for k, v := range s.orders {
		cp := *v
		c.orders[k] = &cp
	}
	for k, v := range s.orderLines {
		c.orderLines[k] = append([]*entity.PurchaseOrderLine(nil), v...)
	}
	for k, v := range s.branches {
		c.branches[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	c.audits = append([]*entity.AuditEntry(nil), s.audits...)
	return c
}

func (s *memStore) restore(snapshot *memStore) { *s = *snapshot }

// memTxRunner implementa stock.TxRunner sobre el memStore.
type memTxRunner struct{ s *memStore }

func (r *memTxRunner) Run(_ context.Context, fn func(
	movRepo repository.MovementRepository,
	divRepo repository.DivergenceRepository,
	balRepo repository.BalanceRepository,
	orderRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	snapshot := r.s.clone()
	err := fn(&memMovRepo{r.s}, &memDivRepo{r.s}, &memBalRepo{r.s}, &memOrderRepo{r.s}, &memAuditRepo{r.s})
	if err != nil {
		r.s.restore(snapshot)
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Runner para transacciones concurrentes. Cada Run trabaja sobre una copia del
// estado confirmado y lo reemplaza al hacer commit; GetForUpdate de la cabecera
// toma un mutex por movimiento y refresca la copia, igual que un SELECT FOR
// UPDATE bajo READ COMMITTED espera el bloqueo y lee la última versión
// confirmada. Solo lo usan los tests de resoluciones en paralelo.
// ──────────────────────────────────────────────────────────────────────────────

type lockedStore struct {
	mu        sync.Mutex
	committed *memStore
	movLocks  map[string]*sync.Mutex
}

func newLockedStore(s *memStore) *lockedStore {
	return &lockedStore{committed: s, movLocks: map[string]*sync.Mutex{}}
}

func (ls *lockedStore) movLock(id string) *sync.Mutex {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	lk, ok := ls.movLocks[id]
	if !ok {
		lk = &sync.Mutex{}
		ls.movLocks[id] = lk
	}
	return lk
}

type lockedTxRunner struct{ ls *lockedStore }

func (r *lockedTxRunner) Run(_ context.Context, fn func(
	movRepo repository.MovementRepository,
	divRepo repository.DivergenceRepository,
	balRepo repository.BalanceRepository,
	orderRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	r.ls.mu.Lock()
	work := r.ls.committed.clone()
	r.ls.mu.Unlock()
	tx := &lockedTx{ls: r.ls, work: work}
	defer tx.release()
	err := fn(
		&lockedMovRepo{memMovRepo: memMovRepo{s: work}, tx: tx},
		&memDivRepo{work}, &memBalRepo{work}, &memOrderRepo{work}, &memAuditRepo{work},
	)
	if err != nil {
		return err
	}
	r.ls.mu.Lock()
	r.ls.committed.restore(work)
	r.ls.mu.Unlock()
	return nil
}

type lockedTx struct {
	ls   *lockedStore
	work *memStore
	held []*sync.Mutex
}

func (t *lockedTx) release() {
	for _, lk := range t.held {
		lk.Unlock()
	}
	t.held = nil
}

type lockedMovRepo struct {
	memMovRepo
	tx *lockedTx
}

func (r *lockedMovRepo) GetForUpdate(id string) (*entity.Movement, error) {
	lk := r.tx.ls.movLock(id)
	lk.Lock()
	r.tx.held = append(r.tx.held, lk)
	// Tras obtener el bloqueo, las lecturas ven el estado confirmado más
	// reciente, incluidas las resoluciones de hermanas ya confirmadas.
	r.tx.ls.mu.Lock()
	r.tx.work.restore(r.tx.ls.committed.clone())
	r.tx.ls.mu.Unlock()
	return r.memMovRepo.GetByID(id)
}

// ── MovementRepository ────────────────────────────────────────────────────────

type memMovRepo struct{ s *memStore }

func (r *memMovRepo) Create(m *entity.Movement) error {
	cp := *m
	r.s.movements[m.ID] = &cp
	return nil
}

func (r *memMovRepo) CreateLine(l *entity.MovementLine) error {
	cp := *l
	r.s.lines[l.ID] = &cp
	return nil
}

func (r *memMovRepo) GetByID(id string) (*entity.Movement, error) {
	m, ok := r.s.movements[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *memMovRepo) GetLineByID(id string) (*entity.MovementLine, error) {
	l, ok := r.s.lines[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memMovRepo) GetForUpdate(id string) (*entity.Movement, error) {
	return r.GetByID(id)
}

func (r *memMovRepo) GetLineForUpdate(id string) (*entity.MovementLine, error) {
	return r.GetLineByID(id)
}

func (r *memMovRepo) ListLines(movementID string) ([]*entity.MovementLine, error) {
	var out []*entity.MovementLine
	for _, l := range r.s.lines {
		if l.MovementID == movementID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (r *memMovRepo) CountPendingLines(movementID string) (int, error) {
	n := 0
	for _, l := range r.s.lines {
		if l.MovementID == movementID && l.Status == entity.LineStatusPendingAudit {
			n++
		}
	}
	return n, nil
}

func (r *memMovRepo) UpdateStatus(id, status string) error {
	if m, ok := r.s.movements[id]; ok {
		m.Status = status
	}
	return nil
}

func (r *memMovRepo) UpdateLineStatus(id, status string) error {
	if l, ok := r.s.lines[id]; ok {
		l.Status = status
	}
	return nil
}

func (r *memMovRepo) ExistsActiveReceipt(purchaseOrderID string) (bool, error) {
	for _, m := range r.s.movements {
		if m.Kind == entity.MovementKindReceipt &&
			m.PurchaseOrderID != nil && *m.PurchaseOrderID == purchaseOrderID &&
			m.Status != entity.MovementStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMovRepo) ListByBranch(branchID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range r.s.movements {
		origin := m.BranchID != nil && *m.BranchID == branchID
		dest := m.DestBranchID != nil && *m.DestBranchID == branchID
		if !origin && !dest {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		// cota superior exclusiva, igual que el repositorio SQL
		if to != nil && !m.CreatedAt.Before(*to) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ── DivergenceRepository ──────────────────────────────────────────────────────

type memDivRepo struct{ s *memStore }

func (r *memDivRepo) Create(d *entity.DivergenceRecord) error {
	cp := *d
	r.s.divs[d.ID] = &cp
	return nil
}

func (r *memDivRepo) ListByLine(lineID string) ([]*entity.DivergenceRecord, error) {
	var out []*entity.DivergenceRecord
	for _, d := range r.s.divs {
		if d.LineID == lineID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r *memDivRepo) ResolveByLine(lineID, status, userID string, justification *string, resolvedAt time.Time) error {
	for _, d := range r.s.divs {
		if d.LineID == lineID {
			d.Status = status
			d.ResolvedBy = &userID
			d.Justification = justification
			at := resolvedAt
			d.ResolvedAt = &at
		}
	}
	return nil
}

func (r *memDivRepo) ListPending(limit, offset int) ([]*entity.DivergenceRecord, error) {
	var out []*entity.DivergenceRecord
	for _, d := range r.s.divs {
		if d.Status == entity.ResolutionPending {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── BalanceRepository ─────────────────────────────────────────────────────────

type memBalRepo struct{ s *memStore }

func (r *memBalRepo) GetBranchForUpdate(branchID, itemID string) (*entity.BranchBalance, error) {
	qty, ok := r.s.branchBal[balKey(branchID, itemID)]
	if !ok {
		qty = decimal.Zero
	}
	return &entity.BranchBalance{BranchID: branchID, ItemID: itemID, Quantity: qty}, nil
}

func (r *memBalRepo) AddBranch(branchID, itemID string, delta decimal.Decimal) error {
	k := balKey(branchID, itemID)
	r.s.branchBal[k] = r.s.branchBal[k].Add(delta)
	return nil
}

func (r *memBalRepo) AddGlobal(itemID string, delta decimal.Decimal) error {
	r.s.globalBal[itemID] = r.s.globalBal[itemID].Add(delta)
	return nil
}

func (r *memBalRepo) GetGlobal(itemID string) (*entity.ItemBalance, error) {
	return &entity.ItemBalance{ItemID: itemID, Quantity: r.s.globalBal[itemID]}, nil
}

func (r *memBalRepo) ListByBranch(branchID string) ([]*entity.BranchBalance, error) {
	var out []*entity.BranchBalance
	for k, qty := range r.s.branchBal {
		parts := strings.SplitN(k, "|", 2)
		if parts[0] == branchID {
			out = append(out, &entity.BranchBalance{BranchID: branchID, ItemID: parts[1], Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// ── PurchaseOrderRepository ───────────────────────────────────────────────────

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) GetByID(id string) (*entity.PurchaseOrder, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) ListLines(orderID string) ([]*entity.PurchaseOrderLine, error) {
	return r.s.orderLines[orderID], nil
}

func (r *memOrderRepo) UpdateStatus(id, status string) error {
	if o, ok := r.s.orders[id]; ok {
		o.Status = status
	}
	return nil
}

// ── AuditLogRepository, registros ─────────────────────────────────────────────

type memAuditRepo struct{ s *memStore }

func (r *memAuditRepo) Append(e *entity.AuditEntry) error {
	cp := *e
	r.s.audits = append(r.s.audits, &cp)
	return nil
}

type memBranchRepo struct{ s *memStore }

func (r *memBranchRepo) GetByID(id string) (*entity.Branch, error) {
	b, ok := r.s.branches[id]
	if !ok {
		return nil, nil
	}
	return b, nil
}

type memItemRepo struct{ s *memStore }

func (r *memItemRepo) GetByID(id string) (*entity.Item, error) {
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return it, nil
}
