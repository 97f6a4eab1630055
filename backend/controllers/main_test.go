package controllers_test

import (
	"bytes"
	"cactus/backend/config"
	"cactus/backend/cycle"
	"cactus/backend/notify"
	"cactus/backend/routes"
	"cactus/backend/scheduler"
	"cactus/backend/store"
	"cactus/backend/utils"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

type recordingChannel struct {
	sent []notify.Message
}

func (c *recordingChannel) Send(_ context.Context, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

type testEnv struct {
	app     *fiber.App
	store   *store.MemoryStore
	clock   *cycle.ManualClock
	cfg     *config.Config
	channel *recordingChannel
}

func setup(t *testing.T, tweak ...func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:   "testsecret",
		ServerPort:  "8080",
		CycleLength: 24 * time.Hour,
		SweepSecret: "sweep-secret",
		Rules:       config.DefaultRules(),
	}
	for _, fn := range tweak {
		fn(cfg)
	}

	db, err := utils.OpenTestDB(uuid.NewString())
	require.NoError(t, err)

	s := store.NewMemoryStore()
	clock := cycle.NewManualClock(start)
	coord := cycle.NewCoordinator(s, clock, cycle.Options{
		Length:         cfg.CycleLength,
		AllowTestReset: cfg.AllowTestReset,
	})
	channel := &recordingChannel{}
	gate := notify.NewGate(notify.NewGormSendLog(db), clock, notify.GateOptions{})
	notifier := notify.NewNotifier(gate, channel, nil)
	sched, err := scheduler.New(coord, notifier, s, scheduler.Options{})
	require.NoError(t, err)

	app := fiber.New()
	routes.SetupRoutes(app, routes.Deps{
		Store:       s,
		Clock:       clock,
		Coordinator: coord,
		Notifier:    notifier,
		Scheduler:   sched,
	}, cfg)

	return &testEnv{app: app, store: s, clock: clock, cfg: cfg, channel: channel}
}

// do sends a request as userID (anonymous when empty) and decodes the JSON body.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, userID string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonData)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := utils.GenerateJWTToken(userID, userID+"@example.com", e.cfg)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	var result map[string]interface{}
	if resp.StatusCode != fiber.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&result)
	}
	return resp, result
}

func newSweepRequest(secret string) *http.Request {
	req := httptest.NewRequest("POST", "/api/internal/sweep", nil)
	req.Header.Set("X-Sweep-Secret", secret)
	return req
}

func data(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := result["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", result)
	return d
}
