package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ConnectionCounter interface {
	ConnectionCount() int
}

// OnlineUsersReader reads the external presence mirror.
type OnlineUsersReader interface {
	GetOnlineUsers(ctx context.Context) ([]uint, error)
}

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	// OnlineUsers is the mirror's count; absent when no mirror is configured
	// or it could not be read.
	OnlineUsers *int `json:"onlineUsers,omitempty"`
}

type HealthHandler struct {
	counter ConnectionCounter
	online  OnlineUsersReader
}

// NewHealthHandler reports local connections and, when online is not nil,
// the presence mirror's count.
func NewHealthHandler(counter ConnectionCounter, online OnlineUsersReader) *HealthHandler {
	return &HealthHandler{counter: counter, online: online}
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Connections: h.counter.ConnectionCount()}
	if h.online != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if ids, err := h.online.GetOnlineUsers(ctx); err == nil {
			n := len(ids)
			resp.OnlineUsers = &n
		}
	}
	c.JSON(http.StatusOK, resp)
}
