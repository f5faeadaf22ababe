package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/sitewatch/internal/notify"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

func alert() models.Alert {
	return models.Alert{
		ID:        "a-1",
		Type:      models.AlertDowntime,
		TargetID:  "acme",
		Details:   map[string]string{"error": "connection refused"},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.Notify(context.Background(), alert()))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "alert", entry["msg"])
	assert.Equal(t, "downtime", entry["type"])
	assert.Equal(t, "acme", entry["target_id"])
}

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var got models.Alert
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := notify.NewWebhookNotifier(ts.URL, time.Second)
	require.NoError(t, n.Notify(context.Background(), alert()))

	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, models.AlertDowntime, got.Type)
}

func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	err := notify.NewWebhookNotifier(ts.URL, time.Second).Notify(context.Background(), alert())
	assert.ErrorIs(t, err, notify.ErrDelivery)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookNotifier_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	err := notify.NewWebhookNotifier(url, time.Second).Notify(context.Background(), alert())
	assert.ErrorIs(t, err, notify.ErrDelivery)
}

type funcNotifier func(ctx context.Context, a models.Alert) error

func (f funcNotifier) Notify(ctx context.Context, a models.Alert) error { return f(ctx, a) }

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	calls := 0
	count := funcNotifier(func(_ context.Context, _ models.Alert) error { calls++; return nil })

	m := notify.Multi{
		funcNotifier(func(_ context.Context, _ models.Alert) error { return errA }),
		count,
		funcNotifier(func(_ context.Context, _ models.Alert) error { return errB }),
	}
	err := m.Notify(context.Background(), alert())

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	assert.NoError(t, notify.Multi{count}.Notify(context.Background(), alert()))
}
