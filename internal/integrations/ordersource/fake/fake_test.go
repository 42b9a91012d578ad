package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ju-nu/ShopwareDunning/internal/integrations/ordersource"
	"github.com/ju-nu/ShopwareDunning/internal/models"
)

func TestSource_UpdateMergesCustomFields(t *testing.T) {
	s := New()
	s.Orders["ch-1"] = []*models.Order{{ID: "o-1", CustomFields: map[string]any{"a": 1}}}

	require.NoError(t, s.UpdateOrderCustomFields(context.Background(), "o-1", map[string]any{"b": 2}))

	o := s.Orders["ch-1"][0]
	require.Equal(t, 1, o.CustomFields["a"])
	require.Equal(t, 2, o.CustomFields["b"])
	require.Len(t, s.Updates, 1)
}

func TestSource_SearchPaginates(t *testing.T) {
	s := New()
	s.Orders["ch-1"] = []*models.Order{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	ctx := context.Background()
	p1, err := s.SearchDueOrders(ctx, "ch-1", 1, 2)
	require.NoError(t, err)
	require.Len(t, p1, 2)

	p2, err := s.SearchDueOrders(ctx, "ch-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, p2, 1)

	p3, err := s.SearchDueOrders(ctx, "ch-1", 3, 2)
	require.NoError(t, err)
	require.Empty(t, p3)
}

func TestSource_ResolveChannelID(t *testing.T) {
	s := New()
	s.Channels["Hauptshop"] = "ch-1"

	id, err := s.ResolveChannelID(context.Background(), "Hauptshop")
	require.NoError(t, err)
	require.Equal(t, "ch-1", id)

	_, err = s.ResolveChannelID(context.Background(), "missing")
	require.ErrorIs(t, err, ordersource.ErrNotFound)
}
