package ginserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/domain/shared/fault"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	respondError(c, nil, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		kind   fault.Kind
		status int
	}{
		{fault.KindInvalidBookingRequest, http.StatusBadRequest},
		{fault.KindValidationFailed, http.StatusBadRequest},
		{fault.KindInvalidTransitionTarget, http.StatusConflict},
		{fault.KindUnauthorized, http.StatusForbidden},
		{fault.KindNotFound, http.StatusNotFound},
		{fault.KindAlreadyRated, http.StatusConflict},
		{fault.KindNotCompleted, http.StatusConflict},
		{fault.KindStorageFault, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			rec, body := respond(t, fault.New(tc.kind, "nope"))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, string(tc.kind), body["kind"])
		})
	}
}

func TestRespondErrorHidesUntaggedDetail(t *testing.T) {
	rec, body := respond(t, errors.New("mongo: connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["error"])
	assert.NotContains(t, body, "kind")
}

func TestRespondErrorWrappedFaultKeepsKind(t *testing.T) {
	err := fault.Wrap(fault.KindNotFound, "booking not found", errors.New("memory: booking: not found"))
	rec, body := respond(t, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["kind"])
}
