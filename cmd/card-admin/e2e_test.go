//go:build e2e
// +build e2e

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"card-admin/internal/config"
	"card-admin/internal/handler"
	"card-admin/internal/messaging"
	"card-admin/internal/middleware"
	"card-admin/internal/repository"
	"card-admin/internal/security"
	"card-admin/internal/service"
	"card-admin/internal/testutil"
	"card-admin/internal/validation"
)

const e2ePassword = "e2e-secret"

// startContainer runs image and returns host:port for the exposed port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start %s", req.Image)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate %s: %v", req.Image, err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func startPostgres(t *testing.T) string {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "cards",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}, "5432")
	return "postgres://test:test@" + addr + "/cards?sslmode=disable"
}

func startRabbitMQ(t *testing.T) string {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.12-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	}, "5672")
	return "amqp://guest:guest@" + addr + "/"
}

// stack is one running server process wired like main.
type stack struct {
	url    string
	stores *repository.Stores
}

func startStack(t *testing.T, cfg *config.Config) *stack {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := repository.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	checks := []handler.ReadinessCheck{{Name: "storage", Pinger: stores, Metadata: handler.PoolMetadata(stores.DB)}}

	rmq, err := messaging.NewRabbitMQWithRetry(ctx, cfg.RabbitMQURL)
	require.NoError(t, err)
	t.Cleanup(func() { rmq.Close() })
	checks = append(checks, handler.ReadinessCheck{Name: "rabbitmq", Pinger: rmq})

	limiter := middleware.NewRateLimiter(100, 100)

	app := &application{
		cfg:         cfg,
		authService: service.NewAuthService(stores.Sessions, service.AuthConfig{Password: cfg.FormPassword, SessionTTL: cfg.SessionTTL}),
		cardService: service.NewCardService(stores.Cards, validation.New(), rmq),
		cookies: &middleware.SessionCookies{
			Signer: security.NewSigner(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
		},
		loginLimiter: limiter,
		checks:       checks,
	}
	h, err := app.routes()
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &stack{url: srv.URL, stores: stores}
}

func bindCardEvents(t *testing.T, url string) <-chan amqp.Delivery {
	t.Helper()
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, ch.ExchangeDeclare(messaging.CardsExchange, "topic", true, false, false, false, nil))

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, messaging.CardCreatedKey, messaging.CardsExchange, false, nil))

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)
	return msgs
}

type browser struct {
	t      *testing.T
	client *http.Client
	base   string
}

func newBrowser(t *testing.T, base string) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}, base: base}
}

func (b *browser) call(method, path string, body any, out any) int {
	b.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(b.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, b.base+path, &buf)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestE2E_CardAdminOnPostgres(t *testing.T) {
	cfg := &config.Config{
		Environment:       "test",
		FormPassword:      e2ePassword,
		SessionSecret:     "0123456789abcdef0123456789abcdef",
		SessionTTL:        8 * time.Hour,
		DatabaseURL:       startPostgres(t),
		MigrateOnStart:    true,
		RabbitMQURL:       startRabbitMQ(t),
		AllowedOrigins:    "http://localhost:8080",
		OpenAPIValidation: true,
	}
	require.Equal(t, config.BackendPostgres, cfg.StorageBackend())

	events := bindCardEvents(t, cfg.RabbitMQURL)
	s := startStack(t, cfg)
	admin := newBrowser(t, s.url)

	var msg map[string]any
	require.Equal(t, http.StatusUnauthorized, admin.call(http.MethodGet, "/api/cards", nil, &msg))
	assert.Equal(t, "Authentication required", msg["message"])

	require.Equal(t, http.StatusOK, admin.call(http.MethodPost, "/api/auth/login", map[string]any{"password": e2ePassword}, nil))

	var created handler.CreateCardResponse
	fields := testutil.NewTestCardFields()
	require.Equal(t, http.StatusOK, admin.call(http.MethodPost, "/api/cards", fields, &created))
	require.True(t, created.OK)
	require.NotNil(t, created.Card)

	select {
	case d := <-events:
		var ev messaging.CardCreatedEvent
		require.NoError(t, json.Unmarshal(d.Body, &ev))
		assert.Equal(t, created.Card.ID, ev.Card.ID)
	case <-time.After(10 * time.Second):
		t.Fatal("no card.created event")
	}

	var ready map[string]any
	assert.Equal(t, http.StatusOK, admin.call(http.MethodGet, "/health/ready", nil, &ready))
	assert.Equal(t, "ready", ready["status"])

	// A second process on the same database sees the card and the session.
	restarted := startStack(t, cfg)
	admin.base = restarted.url

	var all []map[string]any
	require.Equal(t, http.StatusOK, admin.call(http.MethodGet, "/api/cards", nil, &all))
	require.Len(t, all, 1)
	assert.Equal(t, created.Card.ID, all[0]["id"])
	assert.Equal(t, "Fire Bolt", all[0]["titre"])

	require.Equal(t, http.StatusOK, admin.call(http.MethodPost, "/api/auth/logout", nil, nil))
	require.Equal(t, http.StatusUnauthorized, admin.call(http.MethodGet, "/api/cards/"+created.Card.ID, nil, nil))

	// A separate browser never shares the session.
	other := newBrowser(t, restarted.url)
	assert.Equal(t, http.StatusUnauthorized, other.call(http.MethodGet, "/api/cards/recent", nil, nil))
}
