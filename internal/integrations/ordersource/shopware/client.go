package shopware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/ju-nu/ShopwareDunning/internal/integrations/ordersource"
	"github.com/ju-nu/ShopwareDunning/internal/models"
)

const (
	maxAttempts       = 3
	backoffBase       = 100 * time.Millisecond
	tokenExpiryBuffer = 60 * time.Second
)

// Client talks to a Shopware 6 Admin API. The worker runs one logical thread,
// so the cached token needs no locking.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client

	token    string
	tokenExp time.Time
}

func New(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.tokenExp.Add(-tokenExpiryBuffer)) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "new token request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", errors.Errorf("token request http %d", resp.StatusCode)
	}

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(err, "decode token response")
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	c.token = tr.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return c.token, nil
}

// do runs one authenticated request with the fixed retry budget. A 401 forces
// a single token refresh without consuming an attempt; other failures back
// off exponentially (2^attempt x 100ms).
func (c *Client) do(ctx context.Context, method, path string, body []byte, accept string) ([]byte, error) {
	refreshed := false
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffBase * (1 << attempt)):
			}
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return nil, errors.Wrap(err, "new request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "do request")
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, "read response")
			continue
		}

		switch {
		case resp.StatusCode/100 == 2:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			refreshed = true
			c.token = ""
			attempt--
			lastErr = errors.Errorf("%s %s: http 401", method, path)
		case resp.StatusCode >= 500:
			lastErr = errors.Errorf("%s %s: http %d", method, path, resp.StatusCode)
		default:
			return nil, errors.Errorf("%s %s: http %d", method, path, resp.StatusCode)
		}
	}

	return nil, errors.Wrap(lastErr, "retry budget exhausted")
}

type criteriaFilter struct {
	Type     string           `json:"type"`
	Field    string           `json:"field,omitempty"`
	Value    any              `json:"value,omitempty"`
	Operator string           `json:"operator,omitempty"`
	Queries  []criteriaFilter `json:"queries,omitempty"`
}

type searchCriteria struct {
	Page         int              `json:"page,omitempty"`
	Limit        int              `json:"limit"`
	Filter       []criteriaFilter `json:"filter"`
	Associations map[string]any   `json:"associations,omitempty"`
}

type channelSearchResp struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *Client) ResolveChannelID(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal(searchCriteria{
		Limit: 1,
		Filter: []criteriaFilter{
			{Type: "equals", Field: "name", Value: name},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal channel criteria")
	}

	data, err := c.do(ctx, http.MethodPost, "/api/search/sales-channel", body, "application/json")
	if err != nil {
		return "", err
	}

	var resp channelSearchResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", errors.Wrap(err, "decode channel search")
	}
	if len(resp.Data) == 0 {
		return "", errors.Wrapf(ordersource.ErrNotFound, "sales channel %q", name)
	}
	return resp.Data[0].ID, nil
}

type orderPayload struct {
	ID              string         `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	OrderDateTime   string         `json:"orderDateTime"`
	AmountTotal     float64        `json:"amountTotal"`
	CustomerComment *string        `json:"customerComment"`
	CustomFields    map[string]any `json:"customFields"`
	OrderCustomer   *struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"orderCustomer"`
	BillingAddress *struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Company   string `json:"company"`
	} `json:"billingAddress"`
	Documents []struct {
		ID           string `json:"id"`
		DeepLinkCode string `json:"deepLinkCode"`
		DocumentType *struct {
			TechnicalName string `json:"technicalName"`
		} `json:"documentType"`
	} `json:"documents"`
	Transactions []struct {
		StateMachineState *struct {
			TechnicalName string `json:"technicalName"`
		} `json:"stateMachineState"`
	} `json:"transactions"`
}

type orderSearchResp struct {
	Data []orderPayload `json:"data"`
}

func (c *Client) SearchDueOrders(ctx context.Context, channelID string, page, limit int) ([]*models.Order, error) {
	body, err := json.Marshal(searchCriteria{
		Page:  page,
		Limit: limit,
		Filter: []criteriaFilter{
			{Type: "equals", Field: "transactions.stateMachineState.technicalName", Value: models.PaymentStateReminded},
			{Type: "equals", Field: "salesChannelId", Value: channelID},
			{Type: "not", Operator: "and", Queries: []criteriaFilter{
				{Type: "equals", Field: "customFields." + models.IgnoreFlagKey, Value: true},
			}},
		},
		Associations: map[string]any{
			"transactions":   map[string]any{"associations": map[string]any{"stateMachineState": map[string]any{}}},
			"documents":      map[string]any{"associations": map[string]any{"documentType": map[string]any{}}},
			"orderCustomer":  map[string]any{},
			"billingAddress": map[string]any{},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal order criteria")
	}

	data, err := c.do(ctx, http.MethodPost, "/api/search/order", body, "application/json")
	if err != nil {
		return nil, err
	}

	var resp orderSearchResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "decode order search")
	}

	orders := make([]*models.Order, 0, len(resp.Data))
	for i := range resp.Data {
		orders = append(orders, mapOrder(&resp.Data[i]))
	}
	return orders, nil
}

func mapOrder(p *orderPayload) *models.Order {
	o := &models.Order{
		ID:           p.ID,
		Number:       p.OrderNumber,
		AmountTotal:  p.AmountTotal,
		CustomFields: p.CustomFields,
	}
	if o.CustomFields == nil {
		o.CustomFields = map[string]any{}
	}
	if p.CustomerComment != nil {
		o.Comment = *p.CustomerComment
	}
	if p.OrderDateTime != "" {
		if t, err := time.Parse(time.RFC3339, p.OrderDateTime); err == nil {
			o.OrderDate = t.UTC()
		} else if t, err := time.Parse("2006-01-02T15:04:05.000-07:00", p.OrderDateTime); err == nil {
			o.OrderDate = t.UTC()
		}
	}
	if p.OrderCustomer != nil {
		o.CustomerEmail = p.OrderCustomer.Email
		o.CustomerName = joinName(p.OrderCustomer.FirstName, p.OrderCustomer.LastName)
	}
	// Billing address wins for the salutation when present (company orders).
	if p.BillingAddress != nil {
		if p.BillingAddress.Company != "" {
			o.CustomerName = p.BillingAddress.Company
		} else if n := joinName(p.BillingAddress.FirstName, p.BillingAddress.LastName); n != "" {
			o.CustomerName = n
		}
	}
	for _, d := range p.Documents {
		doc := models.OrderDocument{ID: d.ID, DeepLinkCode: d.DeepLinkCode}
		if d.DocumentType != nil {
			doc.TechnicalName = d.DocumentType.TechnicalName
		}
		o.Documents = append(o.Documents, doc)
	}
	for _, tr := range p.Transactions {
		t := models.OrderTransaction{}
		if tr.StateMachineState != nil {
			t.PaymentState = tr.StateMachineState.TechnicalName
		}
		o.Transactions = append(o.Transactions, t)
	}
	return o
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func (c *Client) DownloadDocument(ctx context.Context, documentID, deepLinkCode string) ([]byte, error) {
	path := fmt.Sprintf("/api/_action/document/%s/%s", documentID, deepLinkCode)
	data, err := c.do(ctx, http.MethodGet, path, nil, "application/octet-stream")
	if err != nil {
		return nil, errors.Wrap(err, "download document")
	}
	return data, nil
}

func (c *Client) UpdateOrderCustomFields(ctx context.Context, orderID string, fields map[string]any) error {
	body, err := json.Marshal(map[string]any{"customFields": fields})
	if err != nil {
		return errors.Wrap(err, "marshal order update")
	}
	if _, err := c.do(ctx, http.MethodPatch, "/api/order/"+orderID, body, "application/json"); err != nil {
		return errors.Wrap(err, "update order")
	}
	return nil
}
