package messages

import "time"

// NoticeSent is published after a dunning mail went out and its marker was
// persisted. Downstream consumers (reporting, CRM sync) key on the order id.
type NoticeSent struct {
	Tenant      string    `json:"tenant"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Stage       string    `json:"stage"`
	Recipient   string    `json:"recipient"`
	TemplateID  string    `json:"template_id"`
	SentAt      time.Time `json:"sent_at"`
}
