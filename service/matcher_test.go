package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tender-barbarian/chronos/cache"
	"github.com/tender-barbarian/chronos/repository"
)

func newTestMatcher(t *testing.T) (*Matcher, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authStore := repository.NewAuthStore(db)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewMatcher(authStore, cache.NewCache[*time.Location](), logger, 30*time.Second), mock
}

func TestMatcher_Match_SkipsUnloadableTimezone(t *testing.T) {
	m, mock := newTestMatcher(t)

	mock.ExpectQuery("SELECT DISTINCT timezone").
		WillReturnRows(sqlmock.NewRows([]string{"timezone"}).AddRow("Not/A_Real_Zone"))

	forTime := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	batch, err := m.Match(context.Background(), forTime, forTime)
	require.NoError(t, err)
	assert.True(t, batch.Empty())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatcher_Match_BuildsRequestsAndSkipsHeaderFetchWhenNone(t *testing.T) {
	m, mock := newTestMatcher(t)

	mock.ExpectQuery("SELECT DISTINCT timezone").
		WillReturnRows(sqlmock.NewRows([]string{"timezone"}).AddRow("UTC"))

	cols := []string{
		"jobid", "userid", "url", "request_method",
		"auth_enable", "auth_user", "auth_pass",
		"notify_failure", "notify_success", "notify_disable",
		"fail_counter", "save_responses", "header_count",
	}
	mock.ExpectQuery("SELECT job.jobid").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			1, 42, "https://example.com/ping", 0,
			false, "", "",
			true, true, true,
			0, false, 0,
		))

	mock.ExpectQuery("SELECT body").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(""))

	forTime := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	batch, err := m.Match(context.Background(), forTime, forTime)
	require.NoError(t, err)
	assert.False(t, batch.Empty())
	assert.Equal(t, 1, batch.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatcher_Match_FetchesHeadersWhenPresent(t *testing.T) {
	m, mock := newTestMatcher(t)

	mock.ExpectQuery("SELECT DISTINCT timezone").
		WillReturnRows(sqlmock.NewRows([]string{"timezone"}).AddRow("UTC"))

	cols := []string{
		"jobid", "userid", "url", "request_method",
		"auth_enable", "auth_user", "auth_pass",
		"notify_failure", "notify_success", "notify_disable",
		"fail_counter", "save_responses", "header_count",
	}
	mock.ExpectQuery("SELECT job.jobid").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			1, 42, "https://example.com/ping", 0,
			true, "user", "pass",
			false, false, false,
			0, true, 2,
		))

	mock.ExpectQuery("SELECT `key`, `value`").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("X-Foo", "bar").
			AddRow("X-Baz", "qux"))

	mock.ExpectQuery("SELECT body").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow("payload"))

	forTime := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	batch, err := m.Match(context.Background(), forTime, forTime)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}
