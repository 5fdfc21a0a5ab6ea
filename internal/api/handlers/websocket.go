package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	server http.Handler
}

func NewWSHandler(server http.Handler) *WSHandler {
	return &WSHandler{server: server}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Join the chat room. The JWT goes in the token query parameter or an Authorization bearer header.
// @Tags websocket
// @Param token query string false "JWT access token"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 400 {string} string "Not a websocket handshake"
// @Failure 401 {string} string "Missing or invalid token"
// @Failure 403 {string} string "Origin not allowed"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.server.ServeHTTP(c.Writer, c.Request)
}
