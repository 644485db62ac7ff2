package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusForErrorKinds(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindInvalidTransition, http.StatusConflict},
		{apperr.KindInsufficientInventory, http.StatusUnprocessableEntity},
		{apperr.KindIncompleteTasks, http.StatusUnprocessableEntity},
		{apperr.KindOrderLocked, http.StatusLocked},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindPermission, http.StatusForbidden},
		{apperr.Kind(""), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, httpStatusFor(tc.kind), "kind %q", tc.kind)
	}
}

func TestActorFromHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("X-Actor-ID", "42")
	c.Request.Header.Set("X-Actor-Role", "employee")

	actor, ok := actorFrom(c)
	assert.True(t, ok)
	assert.Equal(t, int64(42), actor.ID)
	assert.Equal(t, models.RoleEmployee, actor.Role)
}

func TestActorFromRejectsMissingHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	_, ok := actorFrom(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorFromRejectsUnknownRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("X-Actor-ID", "42")
	c.Request.Header.Set("X-Actor-Role", "superuser")

	_, ok := actorFrom(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
