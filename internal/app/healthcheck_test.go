package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/phasegrid/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareApp(t *testing.T) *App {
	t.Helper()
	reg := prometheus.NewRegistry()
	return &App{
		logger:   newLogger("debug", "text", io.Discard),
		registry: reg,
		metrics:  metrics.New(reg),
	}
}

func TestHealthMux(t *testing.T) {
	a := newBareApp(t)
	a.metrics.Transition("lexer", "generated")
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK\n", string(body))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `phasegrid_phase_transitions_total{phase="lexer",status="generated"} 1`)
	})
}

func TestHealthcheckServer_DisabledAndShutdown(t *testing.T) {
	a := newBareApp(t)
	a.startHealthcheckServer(0)
	assert.Nil(t, a.httpServer)
	assert.NoError(t, a.closeHealthcheckServer(context.Background()))
}
