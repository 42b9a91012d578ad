package models

import "time"

// Payment / document technical names consumed from the order backend.
const (
	PaymentStateReminded      = "reminded"
	PaymentStatePaid          = "paid"
	PaymentStatePartiallyPaid = "partially_paid"

	DocumentTypeInvoice = "invoice"
)

// Order is the read-side projection of a backend order. The only parts this
// system writes back are the stage marker custom fields.
type Order struct {
	ID            string
	Number        string
	CustomerEmail string
	CustomerName  string
	OrderDate     time.Time
	AmountTotal   float64
	Comment       string
	Documents     []OrderDocument
	Transactions  []OrderTransaction
	CustomFields  map[string]any
}

type OrderDocument struct {
	ID            string
	DeepLinkCode  string
	TechnicalName string
}

type OrderTransaction struct {
	PaymentState string
}

// StageMarkers holds the per-stage sent-at unix timestamps. Zero means unset.
type StageMarkers struct {
	Stage1At int64
	Stage2At int64
	Stage3At int64
}

// Markers reads the stage custom fields off the order. Values arrive as JSON
// numbers (float64) or, from older writes, as integers.
func (o *Order) Markers() StageMarkers {
	return StageMarkers{
		Stage1At: markerTimestamp(o.CustomFields, MarkerKeyStage1),
		Stage2At: markerTimestamp(o.CustomFields, MarkerKeyStage2),
		Stage3At: markerTimestamp(o.CustomFields, MarkerKeyStage3),
	}
}

// Ignored reports whether the order is flagged out of the dunning pipeline.
func (o *Order) Ignored() bool {
	v, ok := o.CustomFields[IgnoreFlagKey]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// InvoiceDocument returns the first invoice-typed document, if any.
func (o *Order) InvoiceDocument() (OrderDocument, bool) {
	for _, d := range o.Documents {
		if d.TechnicalName == DocumentTypeInvoice {
			return d, true
		}
	}
	return OrderDocument{}, false
}

// HasPaidTransaction reports whether any transaction already settled the
// order. Paid orders leave the dunning pipeline regardless of stage.
func (o *Order) HasPaidTransaction() bool {
	for _, tr := range o.Transactions {
		if tr.PaymentState == PaymentStatePaid || tr.PaymentState == PaymentStatePartiallyPaid {
			return true
		}
	}
	return false
}

func markerTimestamp(fields map[string]any, key string) int64 {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
