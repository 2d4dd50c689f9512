package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()

	w := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "service is not ready")
}

func TestReadyEndpoint_ReadyAfterSetReady(t *testing.T) {
	h := New()
	h.SetReady(true)

	w := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	// Draining flips it back.
	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h.ReadyEndpoint).Code)
}

func TestLiveEndpoint_HealthyByDefault(t *testing.T) {
	h := New()
	h.AddLivenessCheck("noop", time.Second, func(context.Context) error { return nil })

	w := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheck_FailureThreshold(t *testing.T) {
	c := newCheck("failing", time.Second, func(context.Context) error {
		return errors.New("db down")
	})

	// Unhealthy only after consecutive failures.
	for i := 0; i < failureThreshold-1; i++ {
		c.run(context.Background())
		healthy, _ := c.state()
		require.True(t, healthy, "run %d", i+1)
	}
	c.run(context.Background())
	healthy, err := c.state()
	assert.False(t, healthy)
	assert.EqualError(t, err, "db down")
}

func TestCheck_SingleSuccessRecovers(t *testing.T) {
	fail := true
	c := newCheck("flaky", time.Second, func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})

	for range failureThreshold {
		c.run(context.Background())
	}
	healthy, _ := c.state()
	require.False(t, healthy)

	fail = false
	c.run(context.Background())
	healthy, _ = c.state()
	assert.True(t, healthy)
}

func TestIsReady_FailingReadinessCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("db", 50*time.Millisecond, func(context.Context) error {
		return errors.New("connection refused")
	})

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 10*time.Millisecond)

	w := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
