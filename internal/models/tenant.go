package models

import (
	"net/mail"
	"regexp"

	"github.com/pkg/errors"
)

var channelIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Tenant is one shop's dunning setup. Built once at startup from config,
// immutable afterwards; each tenant drives its own independent pass.
type Tenant struct {
	Name         string
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Exactly one of the two must be set. An id is the backend's 32-hex
	// sales channel key; a name is resolved through the order source.
	SalesChannelID   string
	SalesChannelName string

	DueDays      int
	ContactEmail string
	SenderEmail  string
	SenderName   string

	// Template ids for Zahlungserinnerung, Mahnung 1, Mahnung 2, in order.
	TemplateIDs []string

	BrevoAPIKey string
}

// Validate checks the tenant and coerces DueDays to a minimum of 1. Any
// failure rejects the whole configuration load, there is no partial mode.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("tenant name is required")
	}
	if t.BaseURL == "" {
		return errors.Errorf("tenant %s: base_url is required", t.Name)
	}
	if t.ClientID == "" || t.ClientSecret == "" {
		return errors.Errorf("tenant %s: client credentials are required", t.Name)
	}
	if t.SalesChannelID == "" && t.SalesChannelName == "" {
		return errors.Errorf("tenant %s: sales_channel_id or sales_channel_name is required", t.Name)
	}
	if t.SalesChannelID != "" && !channelIDPattern.MatchString(t.SalesChannelID) {
		return errors.Errorf("tenant %s: sales_channel_id must be 32 hex characters", t.Name)
	}
	if t.ContactEmail == "" {
		return errors.Errorf("tenant %s: contact_email is required", t.Name)
	}
	if _, err := mail.ParseAddress(t.ContactEmail); err != nil {
		return errors.Wrapf(err, "tenant %s: contact_email", t.Name)
	}
	if t.SenderEmail == "" {
		return errors.Errorf("tenant %s: sender_email is required", t.Name)
	}
	if _, err := mail.ParseAddress(t.SenderEmail); err != nil {
		return errors.Wrapf(err, "tenant %s: sender_email", t.Name)
	}
	if len(t.TemplateIDs) != 3 {
		return errors.Errorf("tenant %s: exactly 3 template ids are required, got %d", t.Name, len(t.TemplateIDs))
	}
	for i, id := range t.TemplateIDs {
		if id == "" {
			return errors.Errorf("tenant %s: template id %d is empty", t.Name, i+1)
		}
	}
	if t.BrevoAPIKey == "" {
		return errors.Errorf("tenant %s: brevo_api_key is required", t.Name)
	}
	if t.DueDays < 1 {
		t.DueDays = 1
	}
	return nil
}
