package brevo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ju-nu/ShopwareDunning/internal/integrations/mailer"
)

func TestClient_Send(t *testing.T) {
	var got sendReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/smtp/email", r.URL.Path)
		require.Equal(t, "secret-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	err := c.Send(context.Background(), mailer.Message{
		To:       "kunde@example.com",
		ToName:   "Max Muster",
		From:     "buchhaltung@example.com",
		FromName: "Buchhaltung",
		Subject:  "Zahlungserinnerung zu Bestellung 10042",
		HTML:     "<p>Hallo</p>",
		Attachment: &mailer.Attachment{
			Filename: "rechnung_10042.pdf",
			Content:  []byte("%PDF-1.4"),
		},
	})
	require.NoError(t, err)

	require.Equal(t, "buchhaltung@example.com", got.Sender.Email)
	require.Equal(t, "kunde@example.com", got.To[0].Email)
	require.Equal(t, "Zahlungserinnerung zu Bestellung 10042", got.Subject)
	require.Len(t, got.Attachment, 1)
	require.Equal(t, "rechnung_10042.pdf", got.Attachment[0].Name)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), got.Attachment[0].Content)
}

func TestClient_Send_NoAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, hasAttachment := got["attachment"]
		require.False(t, hasAttachment)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	require.NoError(t, c.Send(context.Background(), mailer.Message{
		To: "a@example.com", From: "b@example.com", Subject: "s", HTML: "<p/>",
	}))
}

func TestClient_Send_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	err := c.Send(context.Background(), mailer.Message{To: "a@example.com"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "brevo http 400")
}
