// Package joblogstore implements the per-user, per-day SQLite log store:
// one database file per user per calendar day, holding every execution
// result for that user's jobs that day. Schema is created inline with
// idempotent DDL on every open, deliberately not via golang-migrate — the
// original daemon never migrates these files, it just issues
// CREATE TABLE IF NOT EXISTS on every write, and this mirrors that exactly.
package joblogstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tender-barbarian/chronos/pathutil"
	"github.com/tender-barbarian/chronos/repository/models"
)

// Store resolves and writes to per-user/per-day SQLite files described by a
// path scheme (containing %u) and a file name scheme (containing %d and
// %m). Open handles are kept around and reused across inserts for the same
// file, since the ingest pipeline revisits the same day's file many times
// in a row during a busy minute.
type Store struct {
	pathScheme string
	nameScheme string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func New(pathScheme, nameScheme string) *Store {
	return &Store{
		pathScheme: pathScheme,
		nameScheme: nameScheme,
		dbs:        make(map[string]*sql.DB),
	}
}

// UserDir returns the per-user directory for userID, substituting %u in the
// path scheme with the hex-grouped user path part.
func (s *Store) UserDir(userID int) string {
	return strings.ReplaceAll(s.pathScheme, "%u", pathutil.UserPathPart(userID))
}

// fileName returns the per-day database file name for a result, decomposed
// in UTC from its planned execution instant. %m is substituted with the
// zero-based month (January = 0), matching the original daemon's
// tm_mon-derived file names — see DESIGN.md's "month indexing" decision.
// This is an intentional historical convention, not a bug to silently fix.
func (s *Store) fileName(datePlannedMS int64) string {
	t := time.UnixMilli(datePlannedMS).UTC()
	name := strings.ReplaceAll(s.nameScheme, "%d", pathutil.Pad2(t.Day()))
	name = strings.ReplaceAll(name, "%m", pathutil.Pad2(int(t.Month())-1))
	return name
}

func (s *Store) open(path string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[path]; ok {
		return db, nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening job log store %q: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA synchronous = OFF`); err != nil {
		db.Close() // nolint
		return nil, fmt.Errorf("configuring job log store %q: %w", path, err)
	}

	if err := createSchema(db); err != nil {
		db.Close() // nolint
		return nil, fmt.Errorf("creating job log schema in %q: %w", path, err)
	}

	s.dbs[path] = db
	return db, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS "joblog"(
			"joblogid" INTEGER PRIMARY KEY ASC,
			"jobid" INTEGER NOT NULL,
			"date" INTEGER NOT NULL,
			"date_planned" INTEGER NOT NULL,
			"jitter" INTEGER NOT NULL,
			"url" TEXT NOT NULL,
			"duration" INTEGER NOT NULL,
			"status" INTEGER NOT NULL,
			"status_text" TEXT NOT NULL,
			"http_status" INTEGER NOT NULL,
			"created" INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS "idx_joblog_jobid" ON "joblog" ("jobid")`,
		`CREATE TABLE IF NOT EXISTS "joblog_response"(
			"joblogid" INTEGER PRIMARY KEY,
			"jobid" INTEGER NOT NULL,
			"date" INTEGER NOT NULL,
			"headers" TEXT NOT NULL,
			"body" TEXT NOT NULL,
			"created" INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert writes one joblog row for result under dir (as returned by
// UserDir, which the caller must already have created), plus a
// joblog_response row when the job saves responses and produced a nonempty
// capture. It returns the inserted joblogid.
func (s *Store) Insert(ctx context.Context, dir string, result *models.JobResult) (int64, error) {
	path := dir + "/" + s.fileName(result.DatePlanned)
	db, err := s.open(path)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	res, err := db.ExecContext(ctx, `INSERT INTO "joblog"
		("jobid","date","date_planned","jitter","url","duration","status","status_text","http_status","created")
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		result.JobID,
		result.DateStarted/1000,
		result.DatePlanned/1000,
		result.Jitter,
		result.URL,
		result.Duration,
		int(result.Status),
		result.StatusText,
		result.HTTPStatus,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting joblog row for job %d: %w", result.JobID, err)
	}

	joblogID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading joblog insert id for job %d: %w", result.JobID, err)
	}

	if result.SaveResponses && (result.ResponseHeaders != "" || result.ResponseBody != "") {
		_, err := db.ExecContext(ctx, `INSERT INTO "joblog_response"
			("joblogid","jobid","date","headers","body","created")
			VALUES (?,?,?,?,?,?)`,
			joblogID, result.JobID, result.DateStarted/1000, result.ResponseHeaders, result.ResponseBody, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting joblog_response row for job %d: %w", result.JobID, err)
		}
	}

	return joblogID, nil
}

// Close closes every open per-day handle. Called once at shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for path, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %q: %w", path, err)
		}
	}
	return firstErr
}
