package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/jackpatch"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPatcher struct {
	opened   string
	openErr  error
	saveErr  error
	status   jackpatch.Status
	bulkPort string
	bulkMode domain.PortMode
}

func (m *mockPatcher) Open(_ context.Context, projectPath string) error {
	m.opened = projectPath
	return m.openErr
}

func (m *mockPatcher) Save(context.Context) error { return m.saveErr }

func (m *mockPatcher) Status(context.Context) (jackpatch.Status, error) { return m.status, nil }

func (m *mockPatcher) ConnectAllSaved(_ context.Context, name string, mode domain.PortMode) (int, error) {
	m.bulkPort, m.bulkMode = name, mode
	return 3, nil
}

func newHandler(m *mockPatcher) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "jackpatch_test_total", Help: "test"}))
	return NewHandler(m,
		WithGatherer(reg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestOpen(t *testing.T) {
	m := &mockPatcher{status: jackpatch.Status{Path: "/s/jackpatch.xml"}}
	w := do(newHandler(m), "POST", "/open", `{"project": "/s/jackpatch"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/s/jackpatch", m.opened)

	var st jackpatch.Status
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.Equal(t, "/s/jackpatch.xml", st.Path)
}

func TestOpen_BadBody(t *testing.T) {
	m := &mockPatcher{}
	for _, body := range []string{`not json`, `{}`} {
		w := do(newHandler(m), "POST", "/open", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, m.opened)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"No Session", domain.ErrNoSession, http.StatusConflict},
		{"Write Failure", fmt.Errorf("%w /s/x.xml: disk full", domain.ErrPersistenceWrite), http.StatusInternalServerError},
		{"Stopped", domain.ErrStopped, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newHandler(&mockPatcher{saveErr: tt.err}), "POST", "/save", "")
			assert.Equal(t, tt.code, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestConnectSaved(t *testing.T) {
	m := &mockPatcher{}
	w := do(newHandler(m), "POST", "/ports/connect-saved", `{"port": "synth:out", "mode": "output"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"requested": 3}`, w.Body.String())
	assert.Equal(t, "synth:out", m.bulkPort)
	assert.Equal(t, domain.PortModeOutput, m.bulkMode)

	w = do(newHandler(m), "POST", "/ports/connect-saved", `{"port": "synth:out", "mode": "sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	h := newHandler(&mockPatcher{})

	w := do(h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jackpatch_test_total")

	w = do(h, "GET", "/healthz", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
