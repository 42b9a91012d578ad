package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrder_Markers_NumericVariants(t *testing.T) {
	// JSON decoding yields float64; earlier writers stored plain ints.
	o := &Order{CustomFields: map[string]any{
		MarkerKeyStage1: float64(1751000000),
		MarkerKeyStage2: int64(1752000000),
		MarkerKeyStage3: "garbage",
	}}
	m := o.Markers()
	require.Equal(t, int64(1751000000), m.Stage1At)
	require.Equal(t, int64(1752000000), m.Stage2At)
	require.Zero(t, m.Stage3At)
}

func TestOrder_Ignored(t *testing.T) {
	require.False(t, (&Order{}).Ignored())
	require.False(t, (&Order{CustomFields: map[string]any{IgnoreFlagKey: "yes"}}).Ignored())
	require.True(t, (&Order{CustomFields: map[string]any{IgnoreFlagKey: true}}).Ignored())
}

func TestOrder_InvoiceDocument(t *testing.T) {
	o := &Order{Documents: []OrderDocument{
		{ID: "d-1", TechnicalName: "delivery_note"},
		{ID: "d-2", TechnicalName: DocumentTypeInvoice},
	}}
	doc, ok := o.InvoiceDocument()
	require.True(t, ok)
	require.Equal(t, "d-2", doc.ID)

	_, ok = (&Order{}).InvoiceDocument()
	require.False(t, ok)
}

func TestOrder_HasPaidTransaction(t *testing.T) {
	o := &Order{Transactions: []OrderTransaction{{PaymentState: PaymentStateReminded}}}
	require.False(t, o.HasPaidTransaction())

	o.Transactions = append(o.Transactions, OrderTransaction{PaymentState: PaymentStatePartiallyPaid})
	require.True(t, o.HasPaidTransaction())
}

func TestStage_Info(t *testing.T) {
	info, ok := StageFirstDunning.Info()
	require.True(t, ok)
	require.Equal(t, "Mahnung 1", info.Name)
	require.Equal(t, MarkerKeyStage2, info.MarkerKey)
	require.Equal(t, 1, info.TemplateIndex)

	_, ok = StageNone.Info()
	require.False(t, ok)
}
