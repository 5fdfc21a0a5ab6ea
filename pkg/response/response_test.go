package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortUsesDefaultMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Abort(c, CodeConflict, "", "username taken")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, c.IsAborted())

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeConflict, body.Code)
	assert.Equal(t, "Conflict", body.Message)
	assert.Equal(t, "username taken", body.Details)
}

func TestStatusUnknownCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Status(1))
	assert.Equal(t, "Internal server error", Message(1))
}
