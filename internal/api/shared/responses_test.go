package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/activity-logger/internal/platform/logger"
)

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithJSON(w, r, http.StatusCreated, map[string]interface{}{"status": "ok"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	log, buf := logger.GetTestLogger(t)

	ctx := SetTraceID(logger.WithLogger(context.Background(), log))
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil).WithContext(ctx)
	cause := errors.New("dial postgres://admin:hunter2@db:5432/app: connection refused")

	RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "database unavailable", cause)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "database unavailable", body.Error)
	assert.Equal(t, traceID, body.TraceID)
	assert.NotContains(t, w.Body.String(), "hunter2")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), entries[0]["status_code"])
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, entries[0]["error"], "[REDACTED_CREDENTIAL]")
}

func TestRespondWithErrorClientErrorsLogAtDebug(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	ctx := logger.WithLogger(context.Background(), log)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/missing", nil).WithContext(ctx)

	RespondWithError(w, r, http.StatusNotFound, "not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
	logger.AssertLogField(t, buf, "level", "DEBUG")
}

func TestTraceIDs(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))

	a := GetTraceID(SetTraceID(context.Background()))
	b := GetTraceID(SetTraceID(context.Background()))
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
