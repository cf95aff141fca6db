package enum

// ── Roles (carried by the signed role cookie) ──

const (
	RoleCustomer = "pelanggan"
	RoleStaff    = "staff"
)

// ── Payment (CHECK constrained in DB) ──

const (
	PaymentMethodCOD  = "COD"
	PaymentMethodQRIS = "QRIS"
)

const (
	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"
)

// ── Order steps ──
//
// Orders move through a fixed sequence of steps selected by payment method.
// QRIS prepays, so it inserts AWAITING_PAYMENT between weighing and washing.
// COD settles at COMPLETED. CANCELLED sits outside both sequences.

const (
	StepReceived        = "RECEIVED"
	StepPickup          = "PICKUP"
	StepWeighed         = "WEIGHED"
	StepAwaitingPayment = "AWAITING_PAYMENT"
	StepWashing         = "WASHING"
	StepDrying          = "DRYING"
	StepIroning         = "IRONING"
	StepDelivery        = "DELIVERY"
	StepCompleted       = "COMPLETED"

	StatusCancelled = "CANCELLED"
)

// ── Notification types ──

const (
	NotificationOrderUpdate = "ORDER_UPDATE"
	NotificationPaymentDue  = "PAYMENT_DUE"
)

// ── Announcement categories (configurable labels, no DB constraint) ──

const (
	AnnouncementInfo     = "INFO"
	AnnouncementPromo    = "PROMO"
	AnnouncementDowntime = "DOWNTIME"
)
