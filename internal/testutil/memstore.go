// Package testutil provee implementaciones en memoria de los repositorios y
// del TxRunner para las pruebas de la capa de aplicación. No hay rollback: las
// pruebas que dependen de atomicidad deben fallar antes de la primera mutación.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinv "github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/inventory"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

// Store guarda el estado completo del dominio en mapas.
type Store struct {
	mu         sync.Mutex
	Items      map[string]*entity.Item
	Warehouses map[string]*entity.Warehouse
	Lots       map[string]*entity.Lot
	Serials    map[string]*entity.Serial
	Snapshots  map[string]*entity.StockSnapshot // clave itemID|warehouseID
	Events     []*entity.MovementEvent
	Scheduled  map[string]*entity.ScheduledTransfer
	Transfers  map[string]*entity.StockTransfer
	Outbox     []*entity.OutboxMessage
}

// NewStore construye un Store vacío.
func NewStore() *Store {
	return &Store{
		Items:      map[string]*entity.Item{},
		Warehouses: map[string]*entity.Warehouse{},
		Lots:       map[string]*entity.Lot{},
		Serials:    map[string]*entity.Serial{},
		Snapshots:  map[string]*entity.StockSnapshot{},
		Scheduled:  map[string]*entity.ScheduledTransfer{},
		Transfers:  map[string]*entity.StockTransfer{},
	}
}

func snapKey(itemID, warehouseID string) string { return itemID + "|" + warehouseID }

// Repos devuelve el juego completo de repositorios sobre este Store.
func (s *Store) Repos() appinv.Repos {
	return appinv.Repos{
		Items:     &itemRepo{s},
		Lots:      &lotRepo{s},
		Serials:   &serialRepo{s},
		Snapshots: &snapshotRepo{s},
		Events:    &eventRepo{s},
		Scheduled: &scheduledRepo{s},
		Transfers: &transferRepo{s},
		Outbox:    &outboxRepo{s},
	}
}

// ItemRepo expone el repositorio de ítems (para cablear use cases).
func (s *Store) ItemRepo() repository.ItemRepository { return &itemRepo{s} }

// WarehouseRepo expone el repositorio de bodegas.
func (s *Store) WarehouseRepo() repository.WarehouseRepository { return &warehouseRepo{s} }

// LotRepo expone el repositorio de lotes.
func (s *Store) LotRepo() repository.LotRepository { return &lotRepo{s} }

// SerialRepo expone el repositorio de seriales.
func (s *Store) SerialRepo() repository.SerialRepository { return &serialRepo{s} }

// EventRepo expone el repositorio del ledger.
func (s *Store) EventRepo() repository.MovementEventRepository { return &eventRepo{s} }

// SnapshotRepo expone el repositorio de snapshots.
func (s *Store) SnapshotRepo() repository.StockSnapshotRepository { return &snapshotRepo{s} }

// ScheduledRepo expone el repositorio de traslados programados.
func (s *Store) ScheduledRepo() repository.ScheduledTransferRepository { return &scheduledRepo{s} }

// OutboxRepo expone el repositorio de outbox.
func (s *Store) OutboxRepo() repository.OutboxRepository { return &outboxRepo{s} }

// Run ejecuta fn con los repositorios del Store (TxRunner de pruebas).
func (s *Store) Run(_ context.Context, fn func(r appinv.Repos) error) error {
	return fn(s.Repos())
}

// RunSerializable es idéntico a Run en memoria.
func (s *Store) RunSerializable(ctx context.Context, fn func(r appinv.Repos) error) error {
	return s.Run(ctx, fn)
}

// SeedItem agrega un ítem con el modo de trazabilidad dado y devuelve su ID.
func (s *Store) SeedItem(sku, mode string) string {
	id := uuid.New().String()
	s.Items[id] = &entity.Item{ID: id, SKU: sku, Name: sku, TrackingMode: mode}
	return id
}

// SeedWarehouse agrega una bodega y devuelve su ID.
func (s *Store) SeedWarehouse(name string) string {
	id := uuid.New().String()
	s.Warehouses[id] = &entity.Warehouse{ID: id, Name: name}
	return id
}

// Snapshot devuelve la cantidad del snapshot (cero si no existe).
func (s *Store) Snapshot(itemID, warehouseID string) decimal.Decimal {
	if snap, ok := s.Snapshots[snapKey(itemID, warehouseID)]; ok {
		return snap.Quantity
	}
	return decimal.Zero
}

// EventsOfType devuelve los eventos del ledger con el tipo dado.
func (s *Store) EventsOfType(evType string) []*entity.MovementEvent {
	var out []*entity.MovementEvent
	for _, ev := range s.Events {
		if ev.Type == evType {
			out = append(out, ev)
		}
	}
	return out
}

// NotifyRecorder registra las notificaciones best-effort emitidas.
type NotifyRecorder struct {
	mu     sync.Mutex
	Events []string
}

// Notify acumula el nombre del evento.
func (n *NotifyRecorder) Notify(_ context.Context, event string, _ map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, event)
}

// ─── repositorios ───

type itemRepo struct{ s *Store }

func (r *itemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.Items[id], nil
}

func (r *itemRepo) GetBySKU(_ context.Context, sku string) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.Items {
		if it.SKU == sku {
			return it, nil
		}
	}
	return nil, nil
}

func (r *itemRepo) Create(_ context.Context, item *entity.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	for _, it := range r.s.Items {
		if it.SKU == item.SKU {
			return domain.ErrDuplicate
		}
	}
	r.s.Items[item.ID] = item
	return nil
}

func (r *itemRepo) AddToTotalQty(_ context.Context, itemID string, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.Items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	item.TotalQty = item.TotalQty.Add(delta)
	return nil
}

type warehouseRepo struct{ s *Store }

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.Warehouses[id], nil
}

func (r *warehouseRepo) Create(_ context.Context, wh *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}
	r.s.Warehouses[wh.ID] = wh
	return nil
}

func (r *warehouseRepo) List(_ context.Context) ([]*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Warehouse
	for _, wh := range r.s.Warehouses {
		out = append(out, wh)
	}
	return out, nil
}

type lotRepo struct{ s *Store }

func (r *lotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.Lots[id], nil
}

func (r *lotRepo) GetByCode(_ context.Context, itemID, code string) (*entity.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findLot(itemID, code), nil
}

func (r *lotRepo) findLot(itemID, code string) *entity.Lot {
	for _, lot := range r.s.Lots {
		if lot.ItemID == itemID && lot.Code == code {
			return lot
		}
	}
	return nil
}

func (r *lotRepo) GetOrCreate(_ context.Context, itemID, code string, expiresAt *time.Time) (*entity.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lot := r.findLot(itemID, code); lot != nil {
		return lot, nil
	}
	lot := &entity.Lot{ID: uuid.New().String(), ItemID: itemID, Code: code, ExpiresAt: expiresAt}
	r.s.Lots[lot.ID] = lot
	return lot, nil
}

func (r *lotRepo) ListByItem(_ context.Context, itemID string) ([]*entity.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Lot
	for _, lot := range r.s.Lots {
		if lot.ItemID == itemID {
			out = append(out, lot)
		}
	}
	return out, nil
}

type serialRepo struct{ s *Store }

func (r *serialRepo) GetByID(_ context.Context, id string) (*entity.Serial, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.Serials[id], nil
}

func (r *serialRepo) GetByNumber(_ context.Context, itemID, number string) (*entity.Serial, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findSerial(itemID, number), nil
}

func (r *serialRepo) findSerial(itemID, number string) *entity.Serial {
	for _, sr := range r.s.Serials {
		if sr.ItemID == itemID && sr.Number == number {
			return sr
		}
	}
	return nil
}

func (r *serialRepo) GetOrCreate(_ context.Context, itemID, number string, lotID *string) (*entity.Serial, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sr := r.findSerial(itemID, number); sr != nil {
		return sr, nil
	}
	sr := &entity.Serial{ID: uuid.New().String(), ItemID: itemID, Number: number, LotID: lotID}
	r.s.Serials[sr.ID] = sr
	return sr, nil
}

type snapshotRepo struct{ s *Store }

func (r *snapshotRepo) Get(_ context.Context, itemID, warehouseID string) (*entity.StockSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if snap, ok := r.s.Snapshots[snapKey(itemID, warehouseID)]; ok {
		cp := *snap
		return &cp, nil
	}
	return &entity.StockSnapshot{ItemID: itemID, WarehouseID: warehouseID, Quantity: decimal.Zero}, nil
}

func (r *snapshotRepo) GetForUpdate(ctx context.Context, itemID, warehouseID string) (*entity.StockSnapshot, error) {
	return r.Get(ctx, itemID, warehouseID)
}

func (r *snapshotRepo) Upsert(_ context.Context, snap *entity.StockSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *snap
	r.s.Snapshots[snapKey(snap.ItemID, snap.WarehouseID)] = &cp
	return nil
}

func (r *snapshotRepo) Increment(_ context.Context, itemID, warehouseID string, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := snapKey(itemID, warehouseID)
	snap, ok := r.s.Snapshots[key]
	if !ok {
		snap = &entity.StockSnapshot{ItemID: itemID, WarehouseID: warehouseID, Quantity: decimal.Zero}
		r.s.Snapshots[key] = snap
	}
	snap.Quantity = snap.Quantity.Add(delta)
	return nil
}

func (r *snapshotRepo) DecrementGuarded(_ context.Context, itemID, warehouseID string, qty decimal.Decimal) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snap, ok := r.s.Snapshots[snapKey(itemID, warehouseID)]
	if !ok || snap.Quantity.LessThan(qty) {
		return false, nil
	}
	snap.Quantity = snap.Quantity.Sub(qty)
	return true, nil
}

func (r *snapshotRepo) ListByItem(_ context.Context, itemID string) ([]*entity.StockSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockSnapshot
	for _, snap := range r.s.Snapshots {
		if snap.ItemID == itemID {
			cp := *snap
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *snapshotRepo) ListAll(_ context.Context) ([]*entity.StockSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockSnapshot
	for _, snap := range r.s.Snapshots {
		cp := *snap
		out = append(out, &cp)
	}
	return out, nil
}

type eventRepo struct{ s *Store }

func (r *eventRepo) Create(_ context.Context, ev *entity.MovementEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	cp := *ev
	r.s.Events = append(r.s.Events, &cp)
	return nil
}

func (r *eventRepo) ListByItem(_ context.Context, itemID string, limit, offset int) ([]*entity.MovementEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.MovementEvent
	for _, ev := range r.s.Events {
		if ev.ItemID == itemID {
			out = append(out, ev)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *eventRepo) AggregateLotBalances(_ context.Context, itemID, warehouseID string) ([]inventory.LotBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byLot := map[string]decimal.Decimal{}
	for _, ev := range r.s.Events {
		if ev.ItemID != itemID || ev.LotID == nil || ev.WarehouseID() != warehouseID {
			continue
		}
		byLot[*ev.LotID] = byLot[*ev.LotID].Add(ev.SignedQuantity())
	}
	var out []inventory.LotBalance
	for lotID, bal := range byLot {
		if !bal.GreaterThan(decimal.Zero) {
			continue
		}
		lot := r.s.Lots[lotID]
		out = append(out, inventory.LotBalance{
			LotID:     lotID,
			LotCode:   lot.Code,
			ExpiresAt: lot.ExpiresAt,
			Balance:   bal,
		})
	}
	return out, nil
}

func (r *eventRepo) SerialNetBalance(_ context.Context, serialID, warehouseID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bal := decimal.Zero
	for _, ev := range r.s.Events {
		if ev.SerialID == nil || *ev.SerialID != serialID || ev.WarehouseID() != warehouseID {
			continue
		}
		bal = bal.Add(ev.SignedQuantity())
	}
	return bal, nil
}

func (r *eventRepo) SerialGlobalBalance(_ context.Context, serialID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bal := decimal.Zero
	for _, ev := range r.s.Events {
		if ev.SerialID == nil || *ev.SerialID != serialID {
			continue
		}
		bal = bal.Add(ev.SignedQuantity())
	}
	return bal, nil
}

func (r *eventRepo) NetBalance(_ context.Context, itemID, warehouseID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bal := decimal.Zero
	for _, ev := range r.s.Events {
		if ev.ItemID != itemID || ev.WarehouseID() != warehouseID {
			continue
		}
		bal = bal.Add(ev.SignedQuantity())
	}
	return bal, nil
}

type scheduledRepo struct{ s *Store }

func (r *scheduledRepo) Create(_ context.Context, st *entity.ScheduledTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	r.s.Scheduled[st.ID] = st
	return nil
}

func (r *scheduledRepo) GetByID(_ context.Context, id string) (*entity.ScheduledTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.Scheduled[id], nil
}

func (r *scheduledRepo) ClaimDue(_ context.Context, from, to time.Time, limit int) ([]*entity.ScheduledTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var claimed []*entity.ScheduledTransfer
	for _, st := range r.s.Scheduled {
		if len(claimed) >= limit {
			break
		}
		if st.Status != entity.TransferPending {
			continue
		}
		if st.ExecuteAt.Before(from) || st.ExecuteAt.After(to) {
			continue
		}
		st.Status = entity.TransferSent
		claimed = append(claimed, st)
	}
	return claimed, nil
}

func (r *scheduledRepo) Cancel(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.Scheduled[id]
	if !ok || st.Status != entity.TransferPending {
		return false, nil
	}
	st.Status = entity.TransferCanceled
	return true, nil
}

func (r *scheduledRepo) MarkExecuted(_ context.Context, id, transferID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.Scheduled[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.Status = entity.TransferExecuted
	st.TransferID = &transferID
	st.LastError = ""
	return nil
}

func (r *scheduledRepo) MarkFailed(_ context.Context, id, lastError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.Scheduled[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.Status = entity.TransferFailed
	st.LastError = lastError
	return nil
}

func (r *scheduledRepo) RecordFailure(_ context.Context, id, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.Scheduled[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.Attempts++
	st.LastError = message
	return nil
}

func (r *scheduledRepo) ListPendingAuto(_ context.Context, limit int) ([]*entity.ScheduledTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ScheduledTransfer
	for _, st := range r.s.Scheduled {
		if len(out) >= limit {
			break
		}
		if st.Status == entity.TransferPending && st.Origin == entity.TransferOriginAuto {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *scheduledRepo) ListOverdue(_ context.Context, now time.Time, limit int) ([]*entity.ScheduledTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ScheduledTransfer
	for _, st := range r.s.Scheduled {
		if len(out) >= limit {
			break
		}
		if st.Status == entity.TransferPending && st.ExecuteAt.Before(now) {
			out = append(out, st)
		}
	}
	return out, nil
}

type transferRepo struct{ s *Store }

func (r *transferRepo) Create(_ context.Context, tr *entity.StockTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if tr.ID == "" {
		tr.ID = uuid.New().String()
	}
	r.s.Transfers[tr.ID] = tr
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tr, ok := r.s.Transfers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tr, nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(_ context.Context, msg *entity.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	cp := *msg
	r.s.Outbox = append(r.s.Outbox, &cp)
	return nil
}

func (r *outboxRepo) ListUndispatched(_ context.Context, limit int) ([]*entity.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.OutboxMessage
	for _, msg := range r.s.Outbox {
		if len(out) >= limit {
			break
		}
		if msg.DispatchedAt == nil {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *outboxRepo) MarkDispatched(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, msg := range r.s.Outbox {
		if msg.ID == id && msg.DispatchedAt == nil {
			now := time.Now()
			msg.DispatchedAt = &now
			return nil
		}
	}
	return nil
}
