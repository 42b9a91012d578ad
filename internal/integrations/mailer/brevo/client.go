package brevo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/ju-nu/ShopwareDunning/internal/integrations/mailer"
)

// Client sends transactional email through the Brevo v3 API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.brevo.com"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type emailAddr struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"` // base64
}

type sendReq struct {
	Sender      emailAddr    `json:"sender"`
	To          []emailAddr  `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	Attachment  []attachment `json:"attachment,omitempty"`
}

func (c *Client) Send(ctx context.Context, msg mailer.Message) error {
	req := sendReq{
		Sender:      emailAddr{Email: msg.From, Name: msg.FromName},
		To:          []emailAddr{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	if msg.Attachment != nil {
		req.Attachment = []attachment{{
			Name:    msg.Attachment.Filename,
			Content: base64.StdEncoding.EncodeToString(msg.Attachment.Content),
		}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal send request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new send request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("brevo http %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

var _ mailer.Client = (*Client)(nil)
