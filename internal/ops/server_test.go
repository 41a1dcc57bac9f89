package ops

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := New(Config{}, Deps{Health: func() (map[string]any, error) {
		return map[string]any{"triggers": 3}, nil
	}}, logx.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, 3, body["triggers"])
}

func TestHealthzDegraded(t *testing.T) {
	t.Parallel()

	s := New(Config{}, Deps{Health: func() (map[string]any, error) {
		return nil, errors.New("storage unreachable")
	}}, logx.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "storage unreachable")
}

func TestMetricsUsesGatherer(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "ops_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(2)

	s := New(Config{}, Deps{Gatherer: reg}, logx.Nop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ops_test_total 2")
}

func TestTriggers(t *testing.T) {
	t.Parallel()

	s := New(Config{}, Deps{Triggers: func() any {
		return []map[string]string{{"key": "reco:-100#0", "next": "08:00"}}
	}}, logx.Nop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/triggers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "reco:-100#0")

	empty := New(Config{}, Deps{}, logx.Nop())
	rec = httptest.NewRecorder()
	empty.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/triggers", nil))
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestPprofMountedOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	off := New(Config{}, Deps{}, logx.Nop())
	rec := httptest.NewRecorder()
	off.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	on := New(Config{Pprof: true}, Deps{}, logx.Nop())
	rec = httptest.NewRecorder()
	on.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRunServesAndShutsDown(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, Deps{}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.True(t, strings.Contains(string(b), `"ok"`))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunDisabledBlocksUntilCancel(t *testing.T) {
	t.Parallel()

	s := New(Config{}, Deps{}, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	require.Empty(t, s.Addr())
}
