package service

import "github.com/cucihub/api/internal/enum"

// Step tables for the two payment-method variants. QRIS inserts
// AWAITING_PAYMENT between weighing and washing: the wash does not start
// until the gateway reports settlement. COD has no payment gate; it settles
// at COMPLETED.
var (
	stepsCOD = []string{
		enum.StepReceived,
		enum.StepPickup,
		enum.StepWeighed,
		enum.StepWashing,
		enum.StepDrying,
		enum.StepIroning,
		enum.StepDelivery,
		enum.StepCompleted,
	}

	stepsQRIS = []string{
		enum.StepReceived,
		enum.StepPickup,
		enum.StepWeighed,
		enum.StepAwaitingPayment,
		enum.StepWashing,
		enum.StepDrying,
		enum.StepIroning,
		enum.StepDelivery,
		enum.StepCompleted,
	}
)

// StepsFor returns the ordered step list for a payment method. Unknown
// methods fall back to the COD table.
func StepsFor(method string) []string {
	if method == enum.PaymentMethodQRIS {
		return stepsQRIS
	}
	return stepsCOD
}

// stepIndex returns the position of a label in the step list, or -1.
func stepIndex(steps []string, label string) int {
	for i, s := range steps {
		if s == label {
			return i
		}
	}
	return -1
}

// DescribeStep renders the history row description for a step label.
func DescribeStep(label string) string {
	switch label {
	case enum.StepReceived:
		return "Order received and queued for pickup"
	case enum.StepPickup:
		return "Courier picked up the laundry"
	case enum.StepWeighed:
		return "Laundry weighed and final price confirmed"
	case enum.StepAwaitingPayment:
		return "Waiting for payment before washing starts"
	case enum.StepWashing:
		return "Washing in progress"
	case enum.StepDrying:
		return "Drying in progress"
	case enum.StepIroning:
		return "Ironing and folding"
	case enum.StepDelivery:
		return "Out for delivery"
	case enum.StepCompleted:
		return "Order completed"
	default:
		return label
	}
}
