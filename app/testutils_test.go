package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
	"github.com/sushihentaime/blogsphere/internal/userservice"
	"go.mongodb.org/mongo-driver/mongo"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

// fakeMedia hands out sequential asset ids and remembers what was destroyed.
type fakeMedia struct {
	mu        sync.Mutex
	n         int
	destroyed []string
	state     string
}

func (f *fakeMedia) Upload(ctx context.Context, img mediaservice.Image) (mediaservice.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	id := fmt.Sprintf("img-%d", f.n)
	return mediaservice.Asset{URL: "https://media.example.com/" + id, ID: id}, nil
}

func (f *fakeMedia) Destroy(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, id)
	return nil
}

func (f *fakeMedia) State() string {
	if f.state == "" {
		return "closed"
	}
	return f.state
}

func testConfig() *Config {
	return &Config{
		Environment:    "testing",
		Version:        "test",
		TrustedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes: 16 << 20,
		LimiterRPS:     100,
		LimiterBurst:   100,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication wires the application against a MongoDB and a RabbitMQ
// container. Published user.created events are delivered on the returned
// channel.
func newTestApplication(t *testing.T) (*application, *mongo.Database, <-chan amqp.Delivery) {
	db := common.TestDB("file://../migrations", t)
	logger := testLogger()

	rabbitmq, err := common.NewMessageBroker(common.TestRabbitMQ(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rabbitmq.Close() })

	require.NoError(t, common.DeclareTopology(rabbitmq))

	events, err := rabbitmq.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	require.NoError(t, err)

	cfg := testConfig()
	media := &fakeMedia{}

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, rabbitmq, common.NewCache(5*time.Minute, 10*time.Minute), logger),
		blogService: blogservice.NewBlogService(db, media, logger),
		broker:      rabbitmq,
		media:       media,
		limiter:     newIPLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}

	return app, db, events
}

// activationToken waits for the user.created event of email.
func activationToken(t *testing.T, events <-chan amqp.Delivery, email string) string {
	t.Helper()

	timeout := time.After(10 * time.Second)
	for {
		select {
		case msg := <-events:
			_ = msg.Ack(false)

			var event struct {
				Email string
				Token string
			}
			require.NoError(t, json.Unmarshal(msg.Body, &event))
			if event.Email == email {
				return event.Token
			}
		case <-timeout:
			t.Fatalf("no user.created event for %s", email)
		}
	}
}

// registerAndLogin creates and verifies an account and returns its bearer token.
func registerAndLogin(t *testing.T, ts *testServer, events <-chan amqp.Delivery, username string) string {
	t.Helper()
	email := username + "@example.com"

	code, _, _ := ts.sendJSON(t, http.MethodPost, "/v1/users/register", "", map[string]string{
		"name":     "Test " + username,
		"username": username,
		"email":    email,
		"password": "Test_1234!",
	})
	require.Equal(t, http.StatusCreated, code)

	code, _, _ = ts.sendJSON(t, http.MethodPut, "/v1/users/activate", "", map[string]string{
		"token": activationToken(t, events, email),
	})
	require.Equal(t, http.StatusOK, code)

	code, _, body := ts.sendJSON(t, http.MethodPost, "/v1/users/login", "", map[string]string{
		"username": username,
		"password": "Test_1234!",
	})
	require.Equal(t, http.StatusOK, code)

	return object(t, body["token"])["token"].(string)
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(responseBody, &env), string(responseBody))

	return res.StatusCode, res.Header, env
}

func (ts *testServer) do(t *testing.T, method, path string, token string, body io.Reader, contentType string) (int, http.Header, envelope) {
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)

	return readResponse(t, res)
}

func (ts *testServer) sendJSON(t *testing.T, method, path, token string, data any) (int, http.Header, envelope) {
	js, err := json.Marshal(data)
	require.NoError(t, err)

	return ts.do(t, method, path, token, bytes.NewReader(js), "application/json")
}

func (ts *testServer) get(t *testing.T, path, token string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodGet, path, token, nil, "")
}

func (ts *testServer) delete(t *testing.T, path, token string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodDelete, path, token, nil, "")
}

// blogForm is a multipart blog request. Files maps a field name to the
// contents of each file sent under it.
type blogForm struct {
	Fields map[string]string
	Files  map[string][]string
}

func (ts *testServer) sendForm(t *testing.T, method, path, token string, form blogForm) (int, http.Header, envelope) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range form.Fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, files := range form.Files {
		for i, content := range files {
			fw, err := mw.CreateFormFile(field, fmt.Sprintf("%s-%d.png", field, i))
			require.NoError(t, err)
			_, err = fw.Write([]byte(content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())

	return ts.do(t, method, path, token, &buf, mw.FormDataContentType())
}

// object digs a nested JSON object out of a decoded response.
func object(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	return m
}

func list(t *testing.T, v any) []any {
	t.Helper()
	l, ok := v.([]any)
	require.True(t, ok, "expected array, got %T", v)
	return l
}
