package models

import "time"

// EventType enumerates checkout events emitted by the storefront.
type EventType string

const (
	EventCheckoutStarted   EventType = "checkout_started"
	EventStepViewed        EventType = "step_viewed"
	EventStepCompleted     EventType = "step_completed"
	EventStepAbandoned     EventType = "step_abandoned"
	EventErrorOccurred     EventType = "error_occurred"
	EventCheckoutCompleted EventType = "checkout_completed"
	EventOrderConfirmed    EventType = "order_confirmed"
	EventAddressValidated  EventType = "address_validated"
	EventShippingSelected  EventType = "shipping_selected"
)

// SessionEventTypes is the event set read when scoring a live session.
var SessionEventTypes = []EventType{
	EventCheckoutStarted,
	EventStepViewed,
	EventStepCompleted,
	EventStepAbandoned,
	EventErrorOccurred,
	EventCheckoutCompleted,
	EventOrderConfirmed,
	EventAddressValidated,
	EventShippingSelected,
}

// HistoryEventTypes is the event set read when building a customer's baseline.
var HistoryEventTypes = []EventType{
	EventCheckoutStarted,
	EventStepAbandoned,
	EventCheckoutCompleted,
	EventOrderConfirmed,
}

// IsCompletion reports whether the event closes a checkout successfully.
func (t EventType) IsCompletion() bool {
	return t == EventCheckoutCompleted || t == EventOrderConfirmed
}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	for _, et := range SessionEventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Step is a checkout stage.
type Step string

const (
	StepCart     Step = "cart"
	StepProfile  Step = "profile"
	StepShipping Step = "shipping"
	StepPayment  Step = "payment"
)

// StepOrder is the fixed progression of a checkout.
var StepOrder = []Step{StepCart, StepProfile, StepShipping, StepPayment}

// Index returns the position of s in StepOrder, or -1 if unknown.
func (s Step) Index() int {
	for i, st := range StepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// After reports whether s comes strictly later than other in StepOrder.
func (s Step) After(other Step) bool {
	i := s.Index()
	return i >= 0 && i > other.Index()
}

// CheckoutEvent is an immutable fact recorded by the ingestion layer.
type CheckoutEvent struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customerId"`
	SessionID  string            `json:"sessionId"`
	Type       EventType         `json:"eventType"`
	Timestamp  time.Time         `json:"timestamp"`
	Step       *Step             `json:"step,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Meta returns the first non-empty metadata value among keys.
func (e CheckoutEvent) Meta(keys ...string) string {
	for _, k := range keys {
		if v := e.Metadata[k]; v != "" {
			return v
		}
	}
	return ""
}
