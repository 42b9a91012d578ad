package ordersource

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ju-nu/ShopwareDunning/internal/models"
)

// ErrNotFound is returned when a lookup (e.g. sales channel by name) has no
// match in the backend.
var ErrNotFound = errors.New("not found")

// Client is the capability contract against the order backend. One client is
// bound to one tenant's base URL and credentials.
type Client interface {
	// ResolveChannelID maps a sales channel name to its 32-hex id.
	ResolveChannelID(ctx context.Context, name string) (string, error)

	// SearchDueOrders pages through orders in the "reminded" payment state on
	// the given channel, with transactions, documents, customer and billing
	// address expanded. Pages are 1-based; a page shorter than limit means
	// the result set is exhausted.
	SearchDueOrders(ctx context.Context, channelID string, page, limit int) ([]*models.Order, error)

	// DownloadDocument fetches the rendered document (PDF) bytes.
	DownloadDocument(ctx context.Context, documentID, deepLinkCode string) ([]byte, error)

	// UpdateOrderCustomFields merges the given custom fields onto the order.
	UpdateOrderCustomFields(ctx context.Context, orderID string, fields map[string]any) error
}
