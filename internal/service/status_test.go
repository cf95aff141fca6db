package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockStatusStore implements StatusStore over in-memory state so the tests
// can assert which rows the state machine wrote and deleted.
type mockStatusStore struct {
	order   database.Order
	history []database.StatusHistory

	payments       []database.CreatePaymentParams
	deletedBatches [][]string

	getErr error
}

func (m *mockStatusStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getErr != nil {
		return database.Order{}, m.getErr
	}
	return m.order, nil
}

func (m *mockStatusStore) ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StatusHistory, error) {
	return m.history, nil
}

func (m *mockStatusStore) CreateStatusHistory(ctx context.Context, arg database.CreateStatusHistoryParams) (database.StatusHistory, error) {
	row := database.StatusHistory{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		Status:      arg.Status,
		Description: arg.Description,
	}
	m.history = append(m.history, row)
	return row, nil
}

func (m *mockStatusStore) DeleteStatusHistoryByStatuses(ctx context.Context, arg database.DeleteStatusHistoryByStatusesParams) error {
	m.deletedBatches = append(m.deletedBatches, arg.Statuses)
	doomed := make(map[string]bool, len(arg.Statuses))
	for _, s := range arg.Statuses {
		doomed[s] = true
	}
	kept := m.history[:0]
	for _, h := range m.history {
		if !doomed[h.Status] {
			kept = append(kept, h)
		}
	}
	m.history = kept
	return nil
}

func (m *mockStatusStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.order.Status = arg.Status
	return m.order, nil
}

func (m *mockStatusStore) MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
	m.order.PaymentStatus = enum.PaymentStatusPaid
	m.order.Status = arg.Status
	return m.order, nil
}

func (m *mockStatusStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	m.payments = append(m.payments, arg)
	return database.Payment{ID: uuid.New(), OrderID: arg.OrderID, Method: arg.Method, Amount: arg.Amount}, nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func newTestService(store *mockStatusStore) (*StatusService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) StatusStore { return store }
	return NewStatusService(pool, newStore), tx
}

// codOrder returns a COD order sitting at the given step with history rows
// for every step up to and including it.
func codOrder(step string) *mockStatusStore {
	return orderAt(enum.PaymentMethodCOD, step)
}

func qrisOrder(step string) *mockStatusStore {
	return orderAt(enum.PaymentMethodQRIS, step)
}

func orderAt(method, step string) *mockStatusStore {
	orderID := uuid.New()
	steps := StepsFor(method)

	store := &mockStatusStore{
		order: database.Order{
			ID:            orderID,
			CustomerID:    uuid.New(),
			PaymentMethod: method,
			PaymentStatus: enum.PaymentStatusUnpaid,
			Status:        step,
		},
	}
	for _, s := range steps {
		store.history = append(store.history, database.StatusHistory{
			ID:      uuid.New(),
			OrderID: orderID,
			Status:  s,
		})
		if s == step {
			break
		}
	}
	return store
}

func historyLabels(store *mockStatusStore) []string {
	labels := make([]string, len(store.history))
	for i, h := range store.history {
		labels[i] = h.Status
	}
	return labels
}

func equalLabels(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// --- Advancing ---

func TestSetStatus_AdvanceOneStep(t *testing.T) {
	store := codOrder(enum.StepReceived)
	svc, tx := newTestService(store)

	result, err := svc.SetStatus(context.Background(), store.order.ID, 1)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if !result.Moved {
		t.Error("expected Moved = true")
	}
	if result.Status != enum.StepPickup {
		t.Errorf("status = %q, want %q", result.Status, enum.StepPickup)
	}
	if result.Order.Status != enum.StepPickup {
		t.Errorf("order status = %q, want %q", result.Order.Status, enum.StepPickup)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}

	want := []string{enum.StepReceived, enum.StepPickup}
	if got := historyLabels(store); !equalLabels(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
	if store.history[len(store.history)-1].Description == "" {
		t.Error("backfilled history row has no description")
	}
}

func TestSetStatus_SkipStepsBackfillsHistory(t *testing.T) {
	store := codOrder(enum.StepReceived)
	store.order.ActualWeight = makeNumeric("4.5")
	svc, _ := newTestService(store)

	// RECEIVED straight to WASHING, skipping PICKUP and WEIGHED.
	result, err := svc.SetStatus(context.Background(), store.order.ID, 3)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if result.Status != enum.StepWashing {
		t.Errorf("status = %q, want %q", result.Status, enum.StepWashing)
	}

	want := []string{enum.StepReceived, enum.StepPickup, enum.StepWeighed, enum.StepWashing}
	if got := historyLabels(store); !equalLabels(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
}

func TestSetStatus_BackfillSkipsExistingLabels(t *testing.T) {
	// The order already holds a WEIGHED row from an earlier pass; a second
	// advance through it must not duplicate the row.
	store := codOrder(enum.StepPickup)
	store.order.ActualWeight = makeNumeric("3.0")
	store.history = append(store.history, database.StatusHistory{
		ID:      uuid.New(),
		OrderID: store.order.ID,
		Status:  enum.StepWeighed,
	})
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), store.order.ID, 3); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	seen := 0
	for _, h := range store.history {
		if h.Status == enum.StepWeighed {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("WEIGHED history rows = %d, want 1", seen)
	}
}

func TestSetStatus_SameStepIsNoOp(t *testing.T) {
	store := codOrder(enum.StepWashing)
	store.order.ActualWeight = makeNumeric("2.0")
	svc, tx := newTestService(store)

	before := len(store.history)
	result, err := svc.SetStatus(context.Background(), store.order.ID, 3)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if result.Moved {
		t.Error("expected Moved = false for current step")
	}
	if len(store.history) != before {
		t.Errorf("history grew from %d to %d on a no-op", before, len(store.history))
	}
	if tx.committed {
		t.Error("no-op should not commit any writes")
	}
}

func TestSetStatus_PositionDerivedFromHistory(t *testing.T) {
	// The stored status column lags behind the history trail; the last
	// history row wins.
	store := codOrder(enum.StepWeighed)
	store.order.Status = enum.StepReceived
	store.order.ActualWeight = makeNumeric("2.0")
	svc, _ := newTestService(store)

	result, err := svc.SetStatus(context.Background(), store.order.ID, 2)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if result.Moved {
		t.Error("target equals the history position, expected a no-op")
	}
}

func TestSetStatus_InvalidIndex(t *testing.T) {
	store := codOrder(enum.StepReceived)
	svc, _ := newTestService(store)

	for _, idx := range []int{-1, len(stepsCOD), 99} {
		if _, err := svc.SetStatus(context.Background(), store.order.ID, idx); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("idx %d: err = %v, want ErrInvalidStep", idx, err)
		}
	}
}

// --- Gate rules ---

func TestSetStatus_CancelledOrderRejected(t *testing.T) {
	store := codOrder(enum.StepPickup)
	store.order.Status = enum.StatusCancelled
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), store.order.ID, 2); !errors.Is(err, ErrOrderCancelled) {
		t.Errorf("err = %v, want ErrOrderCancelled", err)
	}
}

func TestSetStatus_WeightRequiredPastWeighed(t *testing.T) {
	store := codOrder(enum.StepWeighed)
	svc, _ := newTestService(store)

	// No actual weight recorded: WASHING is out of reach.
	if _, err := svc.SetStatus(context.Background(), store.order.ID, 3); !errors.Is(err, ErrWeightRequired) {
		t.Errorf("err = %v, want ErrWeightRequired", err)
	}

	// Moving up to WEIGHED itself is fine.
	store = codOrder(enum.StepPickup)
	if _, err := newTestServiceOnly(store).SetStatus(context.Background(), store.order.ID, 2); err != nil {
		t.Errorf("moving to WEIGHED without weight: %v", err)
	}
}

func newTestServiceOnly(store *mockStatusStore) *StatusService {
	svc, _ := newTestService(store)
	return svc
}

func TestSetStatus_QRISUnpaidBlockedAtPaymentGate(t *testing.T) {
	store := qrisOrder(enum.StepAwaitingPayment)
	store.order.ActualWeight = makeNumeric("3.0")
	store.order.TotalAmount = makeNumeric("30000")
	svc, _ := newTestService(store)

	// AWAITING_PAYMENT is index 3; WASHING at 4 needs settlement first.
	if _, err := svc.SetStatus(context.Background(), store.order.ID, 4); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("err = %v, want ErrPaymentRequired", err)
	}
}

func TestSetStatus_QRISUnpaidCannotJumpPastGate(t *testing.T) {
	store := qrisOrder(enum.StepWeighed)
	store.order.ActualWeight = makeNumeric("3.0")
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), store.order.ID, 5); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("err = %v, want ErrPaymentRequired", err)
	}
}

func TestSetStatus_QRISPaidPassesGate(t *testing.T) {
	store := qrisOrder(enum.StepAwaitingPayment)
	store.order.ActualWeight = makeNumeric("3.0")
	store.order.PaymentStatus = enum.PaymentStatusPaid
	svc, _ := newTestService(store)

	result, err := svc.SetStatus(context.Background(), store.order.ID, 4)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if result.Status != enum.StepWashing {
		t.Errorf("status = %q, want %q", result.Status, enum.StepWashing)
	}
}

func TestSetStatus_QRISUnpaidCompletionRejected(t *testing.T) {
	// Pathological state: an unpaid QRIS order somehow sits at DELIVERY.
	// The terminal step still demands settlement.
	store := qrisOrder(enum.StepDelivery)
	store.order.ActualWeight = makeNumeric("3.0")
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), store.order.ID, len(stepsQRIS)-1); !errors.Is(err, ErrUnpaidCompletion) {
		t.Errorf("err = %v, want ErrUnpaidCompletion", err)
	}
}

// --- COD settlement ---

func TestSetStatus_CODSettlesAtCompletion(t *testing.T) {
	store := codOrder(enum.StepDelivery)
	store.order.ActualWeight = makeNumeric("4.0")
	store.order.TotalAmount = makeNumeric("40000")
	svc, _ := newTestService(store)

	result, err := svc.SetStatus(context.Background(), store.order.ID, len(stepsCOD)-1)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if result.Order.PaymentStatus != enum.PaymentStatusPaid {
		t.Errorf("payment status = %q, want PAID", result.Order.PaymentStatus)
	}
	if len(store.payments) != 1 {
		t.Fatalf("payments recorded = %d, want 1", len(store.payments))
	}
	p := store.payments[0]
	if p.Method != enum.PaymentMethodCOD {
		t.Errorf("payment method = %q, want COD", p.Method)
	}
	if p.Amount != store.order.TotalAmount {
		t.Errorf("payment amount = %v, want order total", p.Amount)
	}
}

func TestSetStatus_CODCompletionWhenPaidAlready(t *testing.T) {
	store := codOrder(enum.StepDelivery)
	store.order.ActualWeight = makeNumeric("4.0")
	store.order.TotalAmount = makeNumeric("40000")
	store.order.PaymentStatus = enum.PaymentStatusPaid
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), store.order.ID, len(stepsCOD)-1); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if len(store.payments) != 0 {
		t.Errorf("payments recorded = %d, want 0 for an already-paid order", len(store.payments))
	}
}

// --- Regressing ---

func TestSetStatus_RegressDeletesLaterHistory(t *testing.T) {
	store := codOrder(enum.StepWashing)
	store.order.ActualWeight = makeNumeric("2.0")
	svc, _ := newTestService(store)

	result, err := svc.SetStatus(context.Background(), store.order.ID, 1)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if result.Status != enum.StepPickup {
		t.Errorf("status = %q, want %q", result.Status, enum.StepPickup)
	}

	if len(store.deletedBatches) != 1 {
		t.Fatalf("delete calls = %d, want 1", len(store.deletedBatches))
	}
	// Everything after PICKUP goes, including steps never reached.
	wantDoomed := stepsCOD[2:]
	if !equalLabels(store.deletedBatches[0], wantDoomed) {
		t.Errorf("deleted statuses = %v, want %v", store.deletedBatches[0], wantDoomed)
	}

	want := []string{enum.StepReceived, enum.StepPickup}
	if got := historyLabels(store); !equalLabels(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
}

func TestSetStatus_RegressThenAdvanceRebuildsHistory(t *testing.T) {
	store := codOrder(enum.StepWashing)
	store.order.ActualWeight = makeNumeric("2.0")
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), store.order.ID, 1); err != nil {
		t.Fatalf("regress: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), store.order.ID, 3); err != nil {
		t.Fatalf("advance: %v", err)
	}

	want := []string{enum.StepReceived, enum.StepPickup, enum.StepWeighed, enum.StepWashing}
	if got := historyLabels(store); !equalLabels(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
}

// --- Failure plumbing ---

func TestSetStatus_BeginError(t *testing.T) {
	pool := &mockTxBeginner{err: errors.New("pool exhausted")}
	svc := NewStatusService(pool, func(db database.DBTX) StatusStore { return nil })

	if _, err := svc.SetStatus(context.Background(), uuid.New(), 1); err == nil {
		t.Error("expected begin error to surface")
	}
}

func TestSetStatus_OrderNotFound(t *testing.T) {
	store := &mockStatusStore{getErr: pgx.ErrNoRows}
	svc, _ := newTestService(store)

	if _, err := svc.SetStatus(context.Background(), uuid.New(), 1); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("err = %v, want pgx.ErrNoRows", err)
	}
}

func TestSetStatus_CommitError(t *testing.T) {
	store := codOrder(enum.StepReceived)
	tx := &mockTx{commitErr: errors.New("connection lost")}
	pool := &mockTxBeginner{tx: tx}
	svc := NewStatusService(pool, func(db database.DBTX) StatusStore { return store })

	if _, err := svc.SetStatus(context.Background(), store.order.ID, 1); err == nil {
		t.Error("expected commit error to surface")
	}
}

// --- ConfirmPayment ---

func TestConfirmPayment_SettlesAndStartsWash(t *testing.T) {
	store := qrisOrder(enum.StepAwaitingPayment)
	store.order.ActualWeight = makeNumeric("3.0")
	store.order.TotalAmount = makeNumeric("30000")
	svc, tx := newTestService(store)

	result, err := svc.ConfirmPayment(context.Background(), store.order.ID, makeNumeric("30000"), enum.PaymentMethodQRIS, "mt-tx-123")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	if result.Status != enum.StepWashing {
		t.Errorf("status = %q, want %q", result.Status, enum.StepWashing)
	}
	if result.Order.PaymentStatus != enum.PaymentStatusPaid {
		t.Errorf("payment status = %q, want PAID", result.Order.PaymentStatus)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}

	if len(store.payments) != 1 {
		t.Fatalf("payments recorded = %d, want 1", len(store.payments))
	}
	if ref := store.payments[0].Reference; !ref.Valid || ref.String != "mt-tx-123" {
		t.Errorf("payment reference = %+v, want mt-tx-123", ref)
	}

	last := store.history[len(store.history)-1]
	if last.Status != enum.StepWashing {
		t.Errorf("last history row = %q, want WASHING", last.Status)
	}
}

func TestConfirmPayment_DoesNotDuplicateWashingRow(t *testing.T) {
	store := qrisOrder(enum.StepAwaitingPayment)
	store.history = append(store.history, database.StatusHistory{
		ID:      uuid.New(),
		OrderID: store.order.ID,
		Status:  enum.StepWashing,
	})
	svc, _ := newTestService(store)

	if _, err := svc.ConfirmPayment(context.Background(), store.order.ID, makeNumeric("30000"), enum.PaymentMethodQRIS, ""); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	seen := 0
	for _, h := range store.history {
		if h.Status == enum.StepWashing {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("WASHING history rows = %d, want 1", seen)
	}
}

func TestConfirmPayment_AlreadyPaid(t *testing.T) {
	store := qrisOrder(enum.StepWashing)
	store.order.PaymentStatus = enum.PaymentStatusPaid
	svc, _ := newTestService(store)

	_, err := svc.ConfirmPayment(context.Background(), store.order.ID, makeNumeric("30000"), enum.PaymentMethodQRIS, "dup")
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("err = %v, want ErrAlreadyPaid", err)
	}
	if len(store.payments) != 0 {
		t.Errorf("payments recorded = %d, want 0", len(store.payments))
	}
}

func TestConfirmPayment_CancelledOrder(t *testing.T) {
	store := qrisOrder(enum.StepAwaitingPayment)
	store.order.Status = enum.StatusCancelled
	svc, _ := newTestService(store)

	if _, err := svc.ConfirmPayment(context.Background(), store.order.ID, makeNumeric("30000"), enum.PaymentMethodQRIS, ""); !errors.Is(err, ErrOrderCancelled) {
		t.Errorf("err = %v, want ErrOrderCancelled", err)
	}
}
