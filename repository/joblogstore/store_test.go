package joblogstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tender-barbarian/chronos/pathutil"
	"github.com/tender-barbarian/chronos/repository/models"
)

func TestStore_UserDir(t *testing.T) {
	s := New("/var/lib/chronos/%u", "joblog-%m-%d.db")
	assert.Equal(t, "/var/lib/chronos/"+pathutil.UserPathPart(0x1a2b), s.UserDir(0x1a2b))
}

func TestStore_fileName(t *testing.T) {
	s := New("/var/lib/chronos/%u", "joblog-%m-%d.db")

	// 2026-03-05T00:00:00Z, March is month index 2 (zero-based).
	const plannedMS = 1772668800000
	assert.Equal(t, "joblog-02-05.db", s.fileName(plannedMS))
}

func TestStore_InsertAndReuse(t *testing.T) {
	dir := t.TempDir()
	s := New(dir+"/%u", "joblog-%m-%d.db")
	defer s.Close() // nolint

	result := &models.JobResult{
		JobID:       7,
		UserID:      1,
		URL:         "https://example.com/ping",
		DatePlanned: 1772668800000,
		DateStarted: 1772841601000,
		Duration:    250,
		Jitter:      1000,
		Status:      models.StatusOK,
		StatusText:  "OK",
		HTTPStatus:  200,
	}

	userDir := s.UserDir(result.UserID)
	require.NoError(t, pathutil.EnsureDir(userDir))

	id1, err := s.Insert(context.Background(), userDir, result)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)

	result2 := *result
	result2.JobID = 8
	id2, err := s.Insert(context.Background(), userDir, &result2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id2)

	path := filepath.Join(userDir, "joblog-02-05.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close() // nolint

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "joblog"`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestStore_InsertSavesResponseWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	s := New(dir+"/%u", "joblog-%m-%d.db")
	defer s.Close() // nolint

	result := &models.JobResult{
		JobID:           9,
		UserID:          2,
		URL:             "https://example.com/ping",
		DatePlanned:     1772668800000,
		DateStarted:     1772841601000,
		Status:          models.StatusOK,
		SaveResponses:   true,
		ResponseHeaders: "Content-Type: text/plain\n",
		ResponseBody:    "pong",
	}

	userDir := s.UserDir(result.UserID)
	require.NoError(t, pathutil.EnsureDir(userDir))

	joblogID, err := s.Insert(context.Background(), userDir, result)
	require.NoError(t, err)

	path := filepath.Join(userDir, "joblog-02-05.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close() // nolint

	var body string
	require.NoError(t, db.QueryRow(`SELECT body FROM "joblog_response" WHERE joblogid = ?`, joblogID).Scan(&body))
	assert.Equal(t, "pong", body)
}

func TestStore_InsertSkipsResponseWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	s := New(dir+"/%u", "joblog-%m-%d.db")
	defer s.Close() // nolint

	result := &models.JobResult{
		JobID:         10,
		UserID:        3,
		DatePlanned:   1772668800000,
		Status:        models.StatusOK,
		SaveResponses: false,
		ResponseBody:  "should not be saved",
	}

	userDir := s.UserDir(result.UserID)
	require.NoError(t, pathutil.EnsureDir(userDir))

	_, err := s.Insert(context.Background(), userDir, result)
	require.NoError(t, err)

	path := filepath.Join(userDir, "joblog-02-05.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close() // nolint

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "joblog_response"`).Scan(&count))
	assert.Equal(t, 0, count)
}
