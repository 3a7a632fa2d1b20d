package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusSource struct {
	lastTick time.Time
	queueLen int
}

func (f fakeStatusSource) LastTick() time.Time { return f.lastTick }
func (f fakeStatusSource) QueueLen() int       { return f.queueLen }

func TestStatus_ReportsQueueLengthAndLastTick(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	lastTick := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	handler := Status(fakeStatusSource{lastTick: lastTick, queueLen: 3}, errorHandler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.QueueLength)
	assert.Equal(t, "2026-03-05T12:00:00Z", resp.LastTick)
}

func TestStatus_OmitsLastTickWhenNeverFired(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	handler := Status(fakeStatusSource{queueLen: 0}, errorHandler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)
	handler(rec, req)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.QueueLength)
	assert.Empty(t, resp.LastTick)
}
