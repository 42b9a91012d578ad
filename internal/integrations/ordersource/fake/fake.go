package fake

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/ju-nu/ShopwareDunning/internal/integrations/ordersource"
	"github.com/ju-nu/ShopwareDunning/internal/models"
)

// Source is an in-memory order backend for tests and local dry runs. Orders
// are served per channel; custom field updates are merged in place so a
// subsequent cycle observes the new markers, like the real backend would.
type Source struct {
	Channels  map[string]string // name -> id
	Orders    map[string][]*models.Order
	Documents map[string][]byte // document id -> bytes

	Updates       []Update
	SearchErr     error
	DownloadErr   error
	UpdateErr     error
	ResolveCalled int
}

type Update struct {
	OrderID string
	Fields  map[string]any
}

func New() *Source {
	return &Source{
		Channels:  map[string]string{},
		Orders:    map[string][]*models.Order{},
		Documents: map[string][]byte{},
	}
}

func (s *Source) ResolveChannelID(ctx context.Context, name string) (string, error) {
	s.ResolveCalled++
	id, ok := s.Channels[name]
	if !ok {
		return "", errors.Wrapf(ordersource.ErrNotFound, "sales channel %q", name)
	}
	return id, nil
}

func (s *Source) SearchDueOrders(ctx context.Context, channelID string, page, limit int) ([]*models.Order, error) {
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	all := s.Orders[channelID]
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *Source) DownloadDocument(ctx context.Context, documentID, deepLinkCode string) ([]byte, error) {
	if s.DownloadErr != nil {
		return nil, s.DownloadErr
	}
	b, ok := s.Documents[documentID]
	if !ok {
		return []byte("%PDF-1.4 " + strings.ToUpper(documentID)), nil
	}
	return b, nil
}

func (s *Source) UpdateOrderCustomFields(ctx context.Context, orderID string, fields map[string]any) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.Updates = append(s.Updates, Update{OrderID: orderID, Fields: fields})
	for _, orders := range s.Orders {
		for _, o := range orders {
			if o.ID != orderID {
				continue
			}
			if o.CustomFields == nil {
				o.CustomFields = map[string]any{}
			}
			for k, v := range fields {
				o.CustomFields[k] = v
			}
		}
	}
	return nil
}

var _ ordersource.Client = (*Source)(nil)
