package pgjournal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPGJournal_RecordAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "dunning_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/dunning_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	sentAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.RecordNotice(ctx, Notice{
		Tenant:      "shop-a",
		OrderID:     "o-1",
		OrderNumber: "10042",
		Stage:       "Zahlungserinnerung",
		Recipient:   "kunde@example.com",
		TemplateID:  "tpl-1",
		SentAt:      sentAt,
	}))
	require.NoError(t, st.RecordNotice(ctx, Notice{
		Tenant:      "shop-a",
		OrderID:     "o-1",
		OrderNumber: "10042",
		Stage:       "Mahnung 1",
		Recipient:   "kunde@example.com",
		TemplateID:  "tpl-2",
		SentAt:      sentAt.Add(time.Hour),
	}))
	require.NoError(t, st.RecordNotice(ctx, Notice{
		Tenant:      "shop-b",
		OrderID:     "o-9",
		OrderNumber: "555",
		Stage:       "Zahlungserinnerung",
		Recipient:   "x@example.com",
		SentAt:      sentAt,
	}))

	notices, err := st.ListNotices(ctx, "shop-a", 10)
	require.NoError(t, err)
	require.Len(t, notices, 2)
	require.Equal(t, "Mahnung 1", notices[0].Stage)
	require.Equal(t, "Zahlungserinnerung", notices[1].Stage)
	require.Equal(t, "10042", notices[0].OrderNumber)
	require.False(t, notices[0].DryRun)
}
