package fake

import (
	"context"

	"github.com/ju-nu/ShopwareDunning/internal/integrations/mailer"
)

// Mailer records every message instead of delivering it.
type Mailer struct {
	Sent []mailer.Message
	Err  error
}

func New() *Mailer { return &Mailer{} }

func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

var _ mailer.Client = (*Mailer)(nil)
