package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Errors returned by the status service. Handlers map these to 4xx codes.
var (
	ErrInvalidStep     = errors.New("step index out of range")
	ErrOrderCancelled  = errors.New("order is cancelled, status can no longer change")
	ErrWeightRequired  = errors.New("actual weight must be recorded before this step")
	ErrPaymentRequired = errors.New("payment must be settled before washing starts")
	ErrUnpaidCompletion = errors.New("order cannot be completed while unpaid")
	ErrAlreadyPaid     = errors.New("order is already paid")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// StatusStore defines the DB methods the state machine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type StatusStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StatusHistory, error)
	CreateStatusHistory(ctx context.Context, arg database.CreateStatusHistoryParams) (database.StatusHistory, error)
	DeleteStatusHistoryByStatuses(ctx context.Context, arg database.DeleteStatusHistoryByStatusesParams) error
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewStatusStore creates a StatusStore from a DBTX (pool or tx).
type NewStatusStore func(db database.DBTX) StatusStore

// StatusService drives an order through its step list.
type StatusService struct {
	pool     TxBeginner
	newStore NewStatusStore
}

// NewStatusService creates a new StatusService.
func NewStatusService(pool TxBeginner, newStore NewStatusStore) *StatusService {
	return &StatusService{pool: pool, newStore: newStore}
}

// SetStatusResult reports the outcome of a status mutation.
type SetStatusResult struct {
	Order  database.Order
	Status string
	// Moved is false when the target step was already current (a no-op
	// confirmation); no notification should fire in that case.
	Moved bool
}

// SetStatus moves the order to the step at targetIdx in its variant's step
// list, enforcing the gate rules in order. All writes happen in one
// transaction; nothing is mutated when a gate rejects the move.
func (s *StatusService) SetStatus(ctx context.Context, orderID uuid.UUID, targetIdx int) (*SetStatusResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}

	steps := StepsFor(order.PaymentMethod)
	if targetIdx < 0 || targetIdx >= len(steps) {
		return nil, ErrInvalidStep
	}
	target := steps[targetIdx]

	history, err := store.ListStatusHistoryByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	currentIdx := currentStepIndex(steps, order, history)

	if err := checkGates(steps, order, currentIdx, targetIdx); err != nil {
		return nil, err
	}

	if targetIdx == currentIdx {
		// Confirming the current step changes nothing.
		return &SetStatusResult{Order: order, Status: target, Moved: false}, nil
	}

	if targetIdx > currentIdx {
		order, err = s.advance(ctx, store, order, steps, history, currentIdx, targetIdx)
	} else {
		order, err = s.regress(ctx, store, order, steps, targetIdx)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SetStatusResult{Order: order, Status: target, Moved: true}, nil
}

// currentStepIndex derives the order's position from the last history row,
// falling back to the stored status when history is empty.
func currentStepIndex(steps []string, order database.Order, history []database.StatusHistory) int {
	label := order.Status
	if len(history) > 0 {
		label = history[len(history)-1].Status
	}
	if idx := stepIndex(steps, label); idx >= 0 {
		return idx
	}
	return 0
}

// checkGates applies the five gate rules in order. Each violation is a hard
// stop.
func checkGates(steps []string, order database.Order, currentIdx, targetIdx int) error {
	if order.CancelledAt.Valid || order.Status == enum.StatusCancelled {
		return ErrOrderCancelled
	}

	weighedIdx := stepIndex(steps, enum.StepWeighed)
	if targetIdx > weighedIdx && !order.ActualWeight.Valid {
		return ErrWeightRequired
	}

	if order.PaymentMethod != enum.PaymentMethodCOD {
		payIdx := stepIndex(steps, enum.StepAwaitingPayment)
		unpaid := order.PaymentStatus != enum.PaymentStatusPaid

		if targetIdx > payIdx && unpaid && order.Status == enum.StepAwaitingPayment {
			return ErrPaymentRequired
		}
		if unpaid && targetIdx > payIdx && currentIdx <= payIdx {
			return ErrPaymentRequired
		}
		if targetIdx == len(steps)-1 && unpaid {
			return ErrUnpaidCompletion
		}
	}
	return nil
}

// advance inserts one history row per newly passed step (skipping labels
// already present) and moves the order to the target label. COD orders
// reaching the terminal step settle on the spot: payment flips to PAID with
// the final total as the paid amount.
func (s *StatusService) advance(ctx context.Context, store StatusStore, order database.Order, steps []string, history []database.StatusHistory, currentIdx, targetIdx int) (database.Order, error) {
	present := make(map[string]bool, len(history))
	for _, h := range history {
		present[h.Status] = true
	}

	for i := currentIdx + 1; i <= targetIdx; i++ {
		if present[steps[i]] {
			continue
		}
		if _, err := store.CreateStatusHistory(ctx, database.CreateStatusHistoryParams{
			OrderID:     order.ID,
			Status:      steps[i],
			Description: DescribeStep(steps[i]),
		}); err != nil {
			return database.Order{}, err
		}
	}

	target := steps[targetIdx]
	codSettles := order.PaymentMethod == enum.PaymentMethodCOD &&
		target == enum.StepCompleted &&
		order.PaymentStatus != enum.PaymentStatusPaid

	if codSettles {
		if _, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID: order.ID,
			Method:  enum.PaymentMethodCOD,
			Amount:  order.TotalAmount,
		}); err != nil {
			return database.Order{}, err
		}
		return store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{ID: order.ID, Status: target})
	}
	return store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: target})
}

// regress deletes the history rows for every step after the target and moves
// the order back to the target label.
func (s *StatusService) regress(ctx context.Context, store StatusStore, order database.Order, steps []string, targetIdx int) (database.Order, error) {
	if err := store.DeleteStatusHistoryByStatuses(ctx, database.DeleteStatusHistoryByStatusesParams{
		OrderID:  order.ID,
		Statuses: steps[targetIdx+1:],
	}); err != nil {
		return database.Order{}, err
	}
	return store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: steps[targetIdx]})
}

// ConfirmPayment records a settled gateway payment and releases a QRIS order
// into the wash queue. Idempotent on already-paid orders.
func (s *StatusService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, amount pgtype.Numeric, method string, reference string) (*SetStatusResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CancelledAt.Valid || order.Status == enum.StatusCancelled {
		return nil, ErrOrderCancelled
	}
	if order.PaymentStatus == enum.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	ref := pgtype.Text{}
	if reference != "" {
		ref = pgtype.Text{String: reference, Valid: true}
	}
	if _, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:   order.ID,
		Method:    method,
		Amount:    amount,
		Reference: ref,
	}); err != nil {
		return nil, err
	}

	// Settlement pushes the order into the in-progress step. The history row
	// is backfilled unless a previous confirm already wrote it.
	history, err := store.ListStatusHistoryByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	hasWashing := false
	for _, h := range history {
		if h.Status == enum.StepWashing {
			hasWashing = true
			break
		}
	}
	if !hasWashing {
		if _, err := store.CreateStatusHistory(ctx, database.CreateStatusHistoryParams{
			OrderID:     order.ID,
			Status:      enum.StepWashing,
			Description: DescribeStep(enum.StepWashing),
		}); err != nil {
			return nil, err
		}
	}

	order, err = store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{ID: order.ID, Status: enum.StepWashing})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SetStatusResult{Order: order, Status: enum.StepWashing, Moved: true}, nil
}
