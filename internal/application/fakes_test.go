package application

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
)

// fakeStore is the in-memory backing state shared by the fake repositories.
// stubTx snapshots it before each transaction body and restores it on error,
// so the fakes show the same all-or-nothing behavior the real repositories
// get from MongoDB transactions.
type fakeStore struct {
	orders     map[string]*domain.Order
	units      map[string]*domain.InventoryUnit
	workers    map[string]*domain.Worker
	exceptions map[string]*domain.OrderException
	stockLog   []*domain.InventoryTransaction
	stateLog   []*domain.OrderStateChange
	outboxRows []*outbox.OutboxEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:     make(map[string]*domain.Order),
		units:      make(map[string]*domain.InventoryUnit),
		workers:    make(map[string]*domain.Worker),
		exceptions: make(map[string]*domain.OrderException),
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	for key, u := range s.units {
		c.units[key] = cloneUnit(u)
	}
	for id, w := range s.workers {
		c.workers[id] = cloneWorker(w)
	}
	for id, e := range s.exceptions {
		c.exceptions[id] = cloneException(e)
	}
	c.stockLog = append([]*domain.InventoryTransaction(nil), s.stockLog...)
	c.stateLog = append([]*domain.OrderStateChange(nil), s.stateLog...)
	c.outboxRows = append([]*outbox.OutboxEvent(nil), s.outboxRows...)
	return c
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	c.DomainEvents = nil
	return &c
}

func cloneUnit(u *domain.InventoryUnit) *domain.InventoryUnit {
	c := *u
	c.DomainEvents = nil
	return &c
}

func cloneWorker(w *domain.Worker) *domain.Worker {
	c := *w
	c.Roles = append([]domain.WorkerRole(nil), w.Roles...)
	return &c
}

func cloneException(e *domain.OrderException) *domain.OrderException {
	c := *e
	c.DomainEvents = nil
	return &c
}

func invKey(sku, bin string) string {
	return sku + "@" + bin
}

func pageSlice[T any](items []T, page, pageSize int64) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= int64(len(items)) {
		return nil
	}
	end := start + pageSize
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

// stubTx makes each transaction body atomic over the fake store
type stubTx struct {
	store *fakeStore
}

func (t *stubTx) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	snapshot := t.store.clone()
	if err := fn(mongo.NewSessionContext(ctx, nil)); err != nil {
		*t.store = *snapshot
		return err
	}
	return nil
}

type fakeOrderRepo struct {
	store     *fakeStore
	saveErr   error
	findErr   error
	updateErr error
}

func (f *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, exists := f.store.orders[order.OrderID]; exists {
		return errors.ErrConflict(fmt.Sprintf("order %s already exists", order.OrderID))
	}
	f.store.orders[order.OrderID] = cloneOrder(order)
	return nil
}

func (f *fakeOrderRepo) Update(_ context.Context, order *domain.Order, expectedStatus domain.OrderStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.store.orders[order.OrderID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.OrderID)
	}
	if stored.Status != expectedStatus {
		return fmt.Errorf("%w: order %s is %s", domain.ErrConcurrentModification, order.OrderID, stored.Status)
	}
	f.store.orders[order.OrderID] = cloneOrder(order)
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	stored, ok := f.store.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return cloneOrder(stored), nil
}

func (f *fakeOrderRepo) FindByStatus(_ context.Context, status domain.OrderStatus, page, pageSize int64) ([]*domain.Order, int64, error) {
	matches := f.sorted(func(o *domain.Order) bool { return o.Status == status })
	return pageSlice(matches, page, pageSize), int64(len(matches)), nil
}

func (f *fakeOrderRepo) FindByPicker(_ context.Context, pickerID string, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	allowed := make(map[domain.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	return f.sorted(func(o *domain.Order) bool {
		return o.PickerID == pickerID && (len(statuses) == 0 || allowed[o.Status])
	}), nil
}

func (f *fakeOrderRepo) List(_ context.Context, page, pageSize int64) ([]*domain.Order, int64, error) {
	all := f.sorted(func(*domain.Order) bool { return true })
	return pageSlice(all, page, pageSize), int64(len(all)), nil
}

func (f *fakeOrderRepo) CountActiveByPicker(_ context.Context, pickerID string) (int64, error) {
	var count int64
	for _, o := range f.store.orders {
		if o.PickerID == pickerID && o.Status == domain.StatusPicking {
			count++
		}
	}
	return count, nil
}

func (f *fakeOrderRepo) sorted(keep func(*domain.Order) bool) []*domain.Order {
	var result []*domain.Order
	for _, o := range f.store.orders {
		if keep(o) {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })
	return result
}

type fakeInventoryRepo struct {
	store   *fakeStore
	saveErr error
	findErr error
}

func (f *fakeInventoryRepo) Save(_ context.Context, unit *domain.InventoryUnit) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	key := invKey(unit.SKU, unit.Bin)
	if _, exists := f.store.units[key]; exists {
		return errors.ErrConflict(fmt.Sprintf("inventory unit %s already exists", key))
	}
	f.store.units[key] = cloneUnit(unit)
	return nil
}

func (f *fakeInventoryRepo) FindBySKUAndBin(_ context.Context, sku, bin string) (*domain.InventoryUnit, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	stored, ok := f.store.units[invKey(sku, bin)]
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	return cloneUnit(stored), nil
}

func (f *fakeInventoryRepo) FindBySKU(_ context.Context, sku string) ([]*domain.InventoryUnit, error) {
	var result []*domain.InventoryUnit
	for _, u := range f.store.units {
		if u.SKU == sku {
			result = append(result, cloneUnit(u))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Bin < result[j].Bin })
	return result, nil
}

func (f *fakeInventoryRepo) List(_ context.Context, page, pageSize int64) ([]*domain.InventoryUnit, int64, error) {
	var all []*domain.InventoryUnit
	for _, u := range f.store.units {
		all = append(all, cloneUnit(u))
	}
	sort.Slice(all, func(i, j int) bool {
		return invKey(all[i].SKU, all[i].Bin) < invKey(all[j].SKU, all[j].Bin)
	})
	return pageSlice(all, page, pageSize), int64(len(all)), nil
}

func (f *fakeInventoryRepo) Reserve(_ context.Context, sku, bin string, quantity int) error {
	unit, ok := f.store.units[invKey(sku, bin)]
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	if unit.OnHand-unit.Reserved < quantity {
		return domain.NewInsufficientInventoryError(sku, bin, quantity, unit.OnHand-unit.Reserved)
	}
	unit.Reserved += quantity
	return nil
}

func (f *fakeInventoryRepo) Release(_ context.Context, sku, bin string, quantity int) error {
	unit, ok := f.store.units[invKey(sku, bin)]
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	if unit.Reserved < quantity {
		return fmt.Errorf("%w: %d reserved, releasing %d", domain.ErrReleaseExceedsReserved, unit.Reserved, quantity)
	}
	unit.Reserved -= quantity
	return nil
}

func (f *fakeInventoryRepo) Deduct(_ context.Context, sku, bin string, quantity int) error {
	unit, ok := f.store.units[invKey(sku, bin)]
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	if unit.Reserved < quantity {
		return fmt.Errorf("%w: %d reserved, deducting %d", domain.ErrDeductExceedsReserved, unit.Reserved, quantity)
	}
	unit.OnHand -= quantity
	unit.Reserved -= quantity
	return nil
}

func (f *fakeInventoryRepo) Adjust(_ context.Context, sku, bin string, newOnHand int) error {
	unit, ok := f.store.units[invKey(sku, bin)]
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	if newOnHand < 0 {
		return domain.ErrNegativeOnHand
	}
	if newOnHand < unit.Reserved {
		return fmt.Errorf("%w: %d reserved, adjusting to %d", domain.ErrAdjustBelowReserved, unit.Reserved, newOnHand)
	}
	unit.OnHand = newOnHand
	return nil
}

func (f *fakeInventoryRepo) Receive(_ context.Context, sku, bin string, quantity int) error {
	unit, ok := f.store.units[invKey(sku, bin)]
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	unit.OnHand += quantity
	return nil
}

type fakeWorkerRepo struct {
	store   *fakeStore
	saveErr error
	findErr error
}

func (f *fakeWorkerRepo) Save(_ context.Context, worker *domain.Worker) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, exists := f.store.workers[worker.WorkerID]; exists {
		return errors.ErrConflict(fmt.Sprintf("worker %s already exists", worker.WorkerID))
	}
	f.store.workers[worker.WorkerID] = cloneWorker(worker)
	return nil
}

func (f *fakeWorkerRepo) Update(_ context.Context, worker *domain.Worker) error {
	if _, ok := f.store.workers[worker.WorkerID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, worker.WorkerID)
	}
	f.store.workers[worker.WorkerID] = cloneWorker(worker)
	return nil
}

func (f *fakeWorkerRepo) FindByID(_ context.Context, workerID string) (*domain.Worker, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	stored, ok := f.store.workers[workerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, workerID)
	}
	return cloneWorker(stored), nil
}

func (f *fakeWorkerRepo) List(_ context.Context, page, pageSize int64) ([]*domain.Worker, int64, error) {
	var all []*domain.Worker
	for _, w := range f.store.workers {
		all = append(all, cloneWorker(w))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].WorkerID < all[j].WorkerID })
	return pageSlice(all, page, pageSize), int64(len(all)), nil
}

func (f *fakeWorkerRepo) IncrementActiveOrders(_ context.Context, workerID string, maxActive int) error {
	worker, ok := f.store.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, workerID)
	}
	if !worker.Active {
		return fmt.Errorf("%w: %s", domain.ErrWorkerInactive, workerID)
	}
	if !worker.HasRole(domain.RolePicker) {
		return fmt.Errorf("%w: %s is not a picker", domain.ErrMissingRole, workerID)
	}
	if worker.ActiveOrders >= maxActive {
		return fmt.Errorf("%w: %s holds %d of %d", domain.ErrWorkerAtCapacity, workerID, worker.ActiveOrders, maxActive)
	}
	worker.ActiveOrders++
	return nil
}

func (f *fakeWorkerRepo) DecrementActiveOrders(_ context.Context, workerID string) error {
	worker, ok := f.store.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, workerID)
	}
	if worker.ActiveOrders > 0 {
		worker.ActiveOrders--
	}
	return nil
}

type fakeExceptionRepo struct {
	store   *fakeStore
	saveErr error
	findErr error
}

func (f *fakeExceptionRepo) Save(_ context.Context, exc *domain.OrderException) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.store.exceptions[exc.ExceptionID] = cloneException(exc)
	return nil
}

func (f *fakeExceptionRepo) Update(_ context.Context, exc *domain.OrderException, expectedStatus domain.ExceptionStatus) error {
	stored, ok := f.store.exceptions[exc.ExceptionID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrExceptionNotFound, exc.ExceptionID)
	}
	if stored.Status != expectedStatus {
		return fmt.Errorf("%w: exception %s is %s", domain.ErrConcurrentModification, exc.ExceptionID, stored.Status)
	}
	f.store.exceptions[exc.ExceptionID] = cloneException(exc)
	return nil
}

func (f *fakeExceptionRepo) FindByID(_ context.Context, exceptionID string) (*domain.OrderException, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	stored, ok := f.store.exceptions[exceptionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExceptionNotFound, exceptionID)
	}
	return cloneException(stored), nil
}

func (f *fakeExceptionRepo) FindByOrderID(_ context.Context, orderID string) ([]*domain.OrderException, error) {
	var result []*domain.OrderException
	for _, e := range f.store.exceptions {
		if e.OrderID == orderID {
			result = append(result, cloneException(e))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExceptionID < result[j].ExceptionID })
	return result, nil
}

func (f *fakeExceptionRepo) FindByStatus(_ context.Context, status domain.ExceptionStatus, page, pageSize int64) ([]*domain.OrderException, int64, error) {
	var matches []*domain.OrderException
	for _, e := range f.store.exceptions {
		if status == "" || e.Status == status {
			matches = append(matches, cloneException(e))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ExceptionID < matches[j].ExceptionID })
	return pageSlice(matches, page, pageSize), int64(len(matches)), nil
}

type fakeStockLogRepo struct {
	store *fakeStore
}

func (f *fakeStockLogRepo) Insert(_ context.Context, tx *domain.InventoryTransaction) error {
	f.store.stockLog = append(f.store.stockLog, tx)
	return nil
}

func (f *fakeStockLogRepo) InsertAll(_ context.Context, txs []*domain.InventoryTransaction) error {
	f.store.stockLog = append(f.store.stockLog, txs...)
	return nil
}

func (f *fakeStockLogRepo) FindBySKUAndBin(_ context.Context, sku, bin string, page, pageSize int64) ([]*domain.InventoryTransaction, int64, error) {
	var matches []*domain.InventoryTransaction
	for _, tx := range f.store.stockLog {
		if tx.SKU == sku && tx.Bin == bin {
			matches = append(matches, tx)
		}
	}
	return pageSlice(matches, page, pageSize), int64(len(matches)), nil
}

func (f *fakeStockLogRepo) FindByOrderID(_ context.Context, orderID string) ([]*domain.InventoryTransaction, error) {
	var matches []*domain.InventoryTransaction
	for _, tx := range f.store.stockLog {
		if tx.OrderID == orderID {
			matches = append(matches, tx)
		}
	}
	return matches, nil
}

type fakeStateLogRepo struct {
	store *fakeStore
}

func (f *fakeStateLogRepo) Insert(_ context.Context, change *domain.OrderStateChange) error {
	f.store.stateLog = append(f.store.stateLog, change)
	return nil
}

func (f *fakeStateLogRepo) FindByOrderID(_ context.Context, orderID string) ([]*domain.OrderStateChange, error) {
	var matches []*domain.OrderStateChange
	for _, change := range f.store.stateLog {
		if change.OrderID == orderID {
			matches = append(matches, change)
		}
	}
	return matches, nil
}

type fakeOutboxRepo struct {
	store *fakeStore
}

func (f *fakeOutboxRepo) SaveAll(_ context.Context, events []*outbox.OutboxEvent) error {
	f.store.outboxRows = append(f.store.outboxRows, events...)
	return nil
}

func (f *fakeOutboxRepo) FindUnpublished(_ context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	var result []*outbox.OutboxEvent
	for _, e := range f.store.outboxRows {
		if e.PublishedAt == nil {
			result = append(result, e)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeOutboxRepo) MarkPublished(_ context.Context, eventID string) error {
	for _, e := range f.store.outboxRows {
		if e.ID == eventID {
			now := time.Now().UTC()
			e.PublishedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", eventID)
}

func (f *fakeOutboxRepo) IncrementRetry(_ context.Context, eventID string, errorMsg string) error {
	for _, e := range f.store.outboxRows {
		if e.ID == eventID {
			e.RetryCount++
			e.LastError = errorMsg
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", eventID)
}

// testEnv wires the fakes into a ServiceDependencies bundle and keeps the
// repo handles around for error injection and direct state assertions
type testEnv struct {
	store      *fakeStore
	orders     *fakeOrderRepo
	inventory  *fakeInventoryRepo
	workers    *fakeWorkerRepo
	exceptions *fakeExceptionRepo
	deps       ServiceDependencies
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	orders := &fakeOrderRepo{store: store}
	inventory := &fakeInventoryRepo{store: store}
	workers := &fakeWorkerRepo{store: store}
	exceptions := &fakeExceptionRepo{store: store}

	deps := ServiceDependencies{
		Tx:           &stubTx{store: store},
		Orders:       orders,
		Inventory:    inventory,
		Workers:      workers,
		Exceptions:   exceptions,
		InventoryLog: &fakeStockLogRepo{store: store},
		StateChanges: &fakeStateLogRepo{store: store},
		Outbox:       &fakeOutboxRepo{store: store},
		EventFactory: cloudevents.NewEventFactory("fulfillment-service-test"),
		Logger:       logging.New(logging.DefaultConfig("test")),
		Metrics:      metrics.New(metrics.DefaultConfig("test")),
	}

	return &testEnv{
		store:      store,
		orders:     orders,
		inventory:  inventory,
		workers:    workers,
		exceptions: exceptions,
		deps:       deps,
	}
}

func (e *testEnv) seedUnit(t *testing.T, sku, bin string, onHand, reserved int) {
	t.Helper()
	unit, err := domain.NewInventoryUnit(sku, bin, onHand)
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	unit.Reserved = reserved
	unit.ClearDomainEvents()
	e.store.units[invKey(sku, bin)] = unit
}

func (e *testEnv) seedPicker(t *testing.T, workerID string, activeOrders int) {
	t.Helper()
	worker, err := domain.NewWorker(workerID, "Test Picker", []domain.WorkerRole{domain.RolePicker})
	if err != nil {
		t.Fatalf("seed picker: %v", err)
	}
	worker.ActiveOrders = activeOrders
	e.store.workers[workerID] = worker
}

func (e *testEnv) seedPacker(t *testing.T, workerID string) {
	t.Helper()
	worker, err := domain.NewWorker(workerID, "Test Packer", []domain.WorkerRole{domain.RolePacker})
	if err != nil {
		t.Fatalf("seed packer: %v", err)
	}
	e.store.workers[workerID] = worker
}

func (e *testEnv) seedOrder(t *testing.T, order *domain.Order) {
	t.Helper()
	order.ClearDomainEvents()
	e.store.orders[order.OrderID] = order
}

func (e *testEnv) seedException(t *testing.T, exc *domain.OrderException) {
	t.Helper()
	exc.ClearDomainEvents()
	e.store.exceptions[exc.ExceptionID] = exc
}

func (e *testEnv) storedOrder(t *testing.T, orderID string) *domain.Order {
	t.Helper()
	order, ok := e.store.orders[orderID]
	if !ok {
		t.Fatalf("order %s not in store", orderID)
	}
	return order
}

func (e *testEnv) storedUnit(t *testing.T, sku, bin string) *domain.InventoryUnit {
	t.Helper()
	unit, ok := e.store.units[invKey(sku, bin)]
	if !ok {
		t.Fatalf("inventory unit %s at %s not in store", sku, bin)
	}
	return unit
}

func (e *testEnv) storedException(t *testing.T, exceptionID string) *domain.OrderException {
	t.Helper()
	exc, ok := e.store.exceptions[exceptionID]
	if !ok {
		t.Fatalf("exception %s not in store", exceptionID)
	}
	return exc
}

func (e *testEnv) outboxTypes() []string {
	types := make([]string, 0, len(e.store.outboxRows))
	for _, row := range e.store.outboxRows {
		types = append(types, row.EventType)
	}
	return types
}
