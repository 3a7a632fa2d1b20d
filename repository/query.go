package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tender-barbarian/chronos/repository/models"
)

// ListTimezones returns every distinct IANA time zone name referenced by a
// user row. The matcher calls this once per tick and resolves each zone via
// its location cache.
func (s *AuthStore) ListTimezones(ctx context.Context) ([]string, error) {
	query, args, err := s.qb.
		Select("DISTINCT timezone").
		From("user").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building timezone query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing timezones: %w", err)
	}
	defer rows.Close() // nolint

	var zones []string
	for rows.Next() {
		var tz string
		if err := rows.Scan(&tz); err != nil {
			return nil, fmt.Errorf("scanning timezone row: %w", err)
		}
		zones = append(zones, tz)
	}
	return zones, rows.Err()
}

// MatchJobs returns every enabled job belonging to users in tz whose five
// wildcard schedule tables match civil, in fail_counter/last_duration order
// (most reliable, fastest jobs first) — matching the original daemon's
// scheduling query exactly, just parameterized.
func (s *AuthStore) MatchJobs(ctx context.Context, tz string, civil CivilTime) ([]models.MatchedJob, error) {
	query, args, err := s.qb.
		Select(
			"job.jobid",
			"job.userid",
			"job.url",
			"job.request_method",
			"job.auth_enable",
			"job.auth_user",
			"job.auth_pass",
			"job.notify_failure",
			"job.notify_success",
			"job.notify_disable",
			"job.fail_counter",
			"job.save_responses",
			"COUNT(job_header.jobheaderid) AS header_count",
		).
		From("job").
		Join("job_hours ON job_hours.jobid = job.jobid").
		Join("job_mdays ON job_mdays.jobid = job.jobid").
		Join("job_wdays ON job_wdays.jobid = job.jobid").
		Join("job_minutes ON job_minutes.jobid = job.jobid").
		Join("job_months ON job_months.jobid = job.jobid").
		Join("user ON job.userid = user.userid").
		LeftJoin("job_header ON job_header.jobid = job.jobid").
		Where(sq.Or{sq.Eq{"job_hours.hour": -1}, sq.Eq{"job_hours.hour": civil.Hour}}).
		Where(sq.Or{sq.Eq{"job_minutes.minute": -1}, sq.Eq{"job_minutes.minute": civil.Minute}}).
		Where(sq.Or{sq.Eq{"job_mdays.mday": -1}, sq.Eq{"job_mdays.mday": civil.Day}}).
		Where(sq.Or{sq.Eq{"job_wdays.wday": -1}, sq.Eq{"job_wdays.wday": civil.Weekday}}).
		Where(sq.Or{sq.Eq{"job_months.month": -1}, sq.Eq{"job_months.month": civil.Month}}).
		Where(sq.Eq{"user.timezone": tz}).
		Where(sq.Eq{"job.enabled": true}).
		GroupBy("job.jobid").
		OrderBy("job.fail_counter ASC", "job.last_duration ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building job match query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching jobs for timezone %s: %w", tz, err)
	}
	defer rows.Close() // nolint

	var jobs []models.MatchedJob
	for rows.Next() {
		var m models.MatchedJob
		var method int
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.URL, &method,
			&m.AuthEnable, &m.AuthUser, &m.AuthPass,
			&m.NotifyFailure, &m.NotifySuccess, &m.NotifyDisable,
			&m.FailCounter, &m.SaveResponses, &m.HeaderCount,
		); err != nil {
			return nil, fmt.Errorf("scanning matched job row: %w", err)
		}
		m.RequestMethod = models.RequestMethod(method)
		jobs = append(jobs, m)
	}
	return jobs, rows.Err()
}

// JobHeaders returns the job_header rows for jobID. The matcher only calls
// this when MatchJobs reported a nonzero header_count for the job, so a job
// with no headers never issues this query.
func (s *AuthStore) JobHeaders(ctx context.Context, jobID int) ([]models.JobHeader, error) {
	query, args, err := s.qb.
		Select("`key`", "`value`").
		From("job_header").
		Where(sq.Eq{"jobid": jobID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building job header query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching headers for job %d: %w", jobID, err)
	}
	defer rows.Close() // nolint

	var headers []models.JobHeader
	for rows.Next() {
		h := models.JobHeader{JobID: jobID}
		if err := rows.Scan(&h.Key, &h.Value); err != nil {
			return nil, fmt.Errorf("scanning job header row: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// JobBody returns the job_body row for jobID, if any. The second return
// value is false when the job has no body row at all, distinct from a body
// row holding an empty string.
func (s *AuthStore) JobBody(ctx context.Context, jobID int) (string, bool, error) {
	query, args, err := s.qb.
		Select("body").
		From("job_body").
		Where(sq.Eq{"jobid": jobID}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("building job body query: %w", err)
	}

	var body string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fetching body for job %d: %w", jobID, err)
	}
	return body, true, nil
}

// ApplyResult updates a job's last_status/last_fetch/last_duration and
// fail_counter columns for one executed result, then returns the freshly
// re-read fail_counter so the ingest pipeline's disable/notify policy can
// act on it.
func (s *AuthStore) ApplyResult(ctx context.Context, result *models.JobResult) (int, error) {
	b := s.qb.Update("job").
		Set("last_status", int(result.Status)).
		Set("last_fetch", result.DateStarted/1000).
		Set("last_duration", result.Duration)

	if result.Status == models.StatusOK || result.Status == models.StatusFailedTimeout {
		b = b.Set("fail_counter", 0)
	} else {
		b = b.Set("fail_counter", sq.Expr("fail_counter + 1"))
	}

	query, args, err := b.Where(sq.Eq{"jobid": result.JobID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building job update query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("updating job %d: %w", result.JobID, err)
	}

	query, args, err = s.qb.
		Select("fail_counter").
		From("job").
		Where(sq.Eq{"jobid": result.JobID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building fail_counter query: %w", err)
	}

	var failCounter int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&failCounter); err != nil {
		return 0, fmt.Errorf("re-reading fail_counter for job %d: %w", result.JobID, err)
	}
	return failCounter, nil
}

// DisableJob sets enabled=0 and resets fail_counter to 0, matching the
// original daemon's auto-disable behaviour exactly.
func (s *AuthStore) DisableJob(ctx context.Context, jobID int) error {
	query, args, err := s.qb.
		Update("job").
		Set("enabled", false).
		Set("fail_counter", 0).
		Where(sq.Eq{"jobid": jobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building disable query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("disabling job %d: %w", jobID, err)
	}
	return nil
}

// InsertNotification records a pending outbound notification for an
// out-of-process mailer to pick up.
func (s *AuthStore) InsertNotification(ctx context.Context, n models.Notification) error {
	query, args, err := s.qb.
		Insert("notification").
		Columns("jobid", "joblogid", "date", "type").
		Values(n.JobID, n.JobLogID, n.Date, int(n.Type)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building notification insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting notification for job %d: %w", n.JobID, err)
	}
	return nil
}
