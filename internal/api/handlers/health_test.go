package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fixedCounter int

func (f fixedCounter) ConnectionCount() int { return int(f) }

type fixedOnline struct {
	ids []uint
	err error
}

func (f fixedOnline) GetOnlineUsers(context.Context) ([]uint, error) { return f.ids, f.err }

func healthBody(t *testing.T, h *HealthHandler) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestHealth(t *testing.T) {
	cases := map[string]struct {
		online OnlineUsersReader
		want   string
	}{
		"no mirror":     {online: nil, want: `{"status":"ok","connections":3}`},
		"mirror":        {online: fixedOnline{ids: []uint{1, 2}}, want: `{"status":"ok","connections":3,"onlineUsers":2}`},
		"mirror failed": {online: fixedOnline{err: errors.New("redis down")}, want: `{"status":"ok","connections":3}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, healthBody(t, NewHealthHandler(fixedCounter(3), tc.online)))
		})
	}
}
