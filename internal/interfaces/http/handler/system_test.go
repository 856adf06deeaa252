package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemRouter(ping PingFunc) *gin.Engine {
	h := NewSystemHandler("netcollect", ping)
	router := gin.New()
	router.GET("/healthz", h.Healthz)
	router.GET("/ready", h.Ready)
	router.GET("/info", h.GetSystemInfo)
	return router
}

func TestSystemHandler_Healthz(t *testing.T) {
	router := newSystemRouter(func(context.Context) error {
		t.Fatal("liveness must not ping the database")
		return nil
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"netcollect"}`, w.Body.String())
}

func TestSystemHandler_Ready(t *testing.T) {
	t.Run("database up", func(t *testing.T) {
		router := newSystemRouter(func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"up"`)
	})

	t.Run("database down", func(t *testing.T) {
		router := newSystemRouter(func(context.Context) error {
			return errors.New("dial tcp: connection refused")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"down"`)
		assert.NotContains(t, w.Body.String(), "refused")
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	router := newSystemRouter(func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "netcollect", data["name"])
	assert.NotEmpty(t, data["go_version"])
}
