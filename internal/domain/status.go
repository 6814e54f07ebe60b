package domain

import "slices"

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every order status in workflow order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	return slices.Contains(OrderStatuses(), s)
}

// IsTerminal reports whether no normal transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusReceived PaymentStatus = "Received"
	PaymentStatusRefunded PaymentStatus = "Refunded"
	PaymentStatusFailed   PaymentStatus = "Failed"
)

// PaymentStatuses lists every payment status.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusReceived,
		PaymentStatusRefunded,
		PaymentStatusFailed,
	}
}

// IsValid reports whether s is a known payment status.
func (s PaymentStatus) IsValid() bool {
	return slices.Contains(PaymentStatuses(), s)
}

// normalPaymentTransitions are the payment changes that happen without staff
// correcting a mistake.
var normalPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusReceived, PaymentStatusFailed},
	PaymentStatusReceived: {PaymentStatusRefunded, PaymentStatusFailed},
}

// Transition classifies a requested state change.
type Transition int

const (
	// TransitionNoop means the target equals the current state.
	TransitionNoop Transition = iota
	// TransitionNormal is an expected workflow step.
	TransitionNormal
	// TransitionOverride is an administrative correction. It is allowed but
	// must be logged.
	TransitionOverride
)

func (t Transition) String() string {
	switch t {
	case TransitionNoop:
		return "noop"
	case TransitionNormal:
		return "normal"
	default:
		return "override"
	}
}

// ClassifyOrderTransition classifies from -> to. Any change out of a
// non-terminal state is normal; leaving Delivered or Cancelled is an override.
func ClassifyOrderTransition(from, to OrderStatus) Transition {
	switch {
	case from == to:
		return TransitionNoop
	case from.IsTerminal():
		return TransitionOverride
	default:
		return TransitionNormal
	}
}

// ClassifyPaymentTransition classifies from -> to against the normal payment
// flow Pending -> Received -> Refunded with Failed reachable from Pending and
// Received.
func ClassifyPaymentTransition(from, to PaymentStatus) Transition {
	if from == to {
		return TransitionNoop
	}
	if slices.Contains(normalPaymentTransitions[from], to) {
		return TransitionNormal
	}
	return TransitionOverride
}

// PaymentMethod is how a customer pays.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "Credit Card"
	PaymentMethodCash       PaymentMethod = "Cash"
	PaymentMethodCheck      PaymentMethod = "Check"
	PaymentMethodPayPal     PaymentMethod = "PayPal"
	PaymentMethodVenmo      PaymentMethod = "Venmo"
	PaymentMethodOther      PaymentMethod = "Other"
)

// PaymentMethods lists every accepted payment method.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCreditCard,
		PaymentMethodCash,
		PaymentMethodCheck,
		PaymentMethodPayPal,
		PaymentMethodVenmo,
		PaymentMethodOther,
	}
}

// IsValid reports whether m is an accepted payment method.
func (m PaymentMethod) IsValid() bool {
	return slices.Contains(PaymentMethods(), m)
}

// SettlesImmediately reports whether money changes hands at the register.
// Such sales are recorded with payment Received.
func (m PaymentMethod) SettlesImmediately() bool {
	return m == PaymentMethodCash || m == PaymentMethodCreditCard
}

// InitialPaymentStatus is the payment status a new sale starts in.
func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if m.SettlesImmediately() {
		return PaymentStatusReceived
	}
	return PaymentStatusPending
}

// ShippingMethod is how an order reaches the customer.
type ShippingMethod string

const (
	ShippingMethodPickup ShippingMethod = "Customer Pickup"
	ShippingMethodLocal  ShippingMethod = "Local Delivery"
	ShippingMethodUSPS   ShippingMethod = "USPS"
	ShippingMethodFedEx  ShippingMethod = "FedEx"
	ShippingMethodUPS    ShippingMethod = "UPS"
)

// DefaultShippingMethod applies to register sales that name none.
const DefaultShippingMethod = ShippingMethodPickup

// ShippingMethods lists every shipping method.
func ShippingMethods() []ShippingMethod {
	return []ShippingMethod{
		ShippingMethodPickup,
		ShippingMethodLocal,
		ShippingMethodUSPS,
		ShippingMethodFedEx,
		ShippingMethodUPS,
	}
}

// IsValid reports whether m is a known shipping method.
func (m ShippingMethod) IsValid() bool {
	return slices.Contains(ShippingMethods(), m)
}

// Code is the single letter used in order IDs.
func (m ShippingMethod) Code() byte {
	switch m {
	case ShippingMethodLocal:
		return 'L'
	case ShippingMethodUSPS:
		return 'U'
	case ShippingMethodFedEx:
		return 'F'
	case ShippingMethodUPS:
		return 'X'
	default:
		return 'P'
	}
}
