// Package notify turns order status transitions into stored user
// notifications. Dispatch is best-effort: failures are logged and never
// surfaced to the request that triggered them.
package notify

import (
	"context"
	"fmt"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/logger"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the slice of the database the dispatcher writes to.
type Store interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// Dispatcher inserts one notification row per dispatched transition.
type Dispatcher struct {
	store Store
}

func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// OrderStatus dispatches the notification for an order landing on a status
// label. Labels without a message are skipped.
func (d *Dispatcher) OrderStatus(ctx context.Context, order database.Order, status string) {
	typ, content, ok := messageFor(order, status)
	if !ok {
		return
	}

	_, err := d.store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:  order.CustomerID,
		OrderID: order.ID,
		Type:    typ,
		Content: content,
	})
	if err != nil {
		logger.FromCtx(ctx).Error("notification insert failed",
			zap.String("order_id", order.ID.String()),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// messageFor maps a status label to its notification. The switch is
// exhaustive over the step set so a new label is a visible omission here,
// not a silent no-op.
func messageFor(order database.Order, status string) (typ, content string, ok bool) {
	code := shortCode(order)

	switch status {
	case enum.StepReceived:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s received. We will schedule your pickup shortly.", code), true
	case enum.StepPickup:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s has been picked up.", code), true
	case enum.StepWeighed:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s has been weighed. Total: Rp%s.", code, amountString(order.TotalAmount)), true
	case enum.StepAwaitingPayment:
		return enum.NotificationPaymentDue,
			fmt.Sprintf("Order %s is waiting for payment of Rp%s. Washing starts once paid.", code, amountString(order.TotalAmount)), true
	case enum.StepWashing:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s is being washed.", code), true
	case enum.StepDrying, enum.StepIroning:
		// Intermediate machine steps are not pushed to customers.
		return "", "", false
	case enum.StepDelivery:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s is out for delivery.", code), true
	case enum.StepCompleted:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s is done. Thank you!", code), true
	case enum.StatusCancelled:
		return enum.NotificationOrderUpdate,
			fmt.Sprintf("Order %s has been cancelled.", code), true
	default:
		return "", "", false
	}
}

// shortCode is the first UUID block, enough for a human-readable reference.
func shortCode(order database.Order) string {
	return order.ID.String()[:8]
}

func amountString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0"
	}
	return d.StringFixed(0)
}
