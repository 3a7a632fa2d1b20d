package models

// JobLog is one row of a per-user, per-day log store, one per executed
// request. It's the per-user mirror of JobResult, minus the fields that
// only make sense in-flight (jitter is stored, but notify flags and the
// old fail counter aren't — those only drive authoritative-store policy).
type JobLog struct {
	ID          int64
	JobID       int
	Date        int64
	DatePlanned int64
	Jitter      int64
	URL         string
	Duration    int64
	Status      JobStatus
	StatusText  string
	HTTPStatus  int
	Created     int64
}

// JobLogResponse holds the saved response headers/body for a JobLog row,
// written only when the job has save_responses enabled and produced a
// non-empty header or body capture.
type JobLogResponse struct {
	JobLogID int64
	JobID    int
	Date     int64
	Headers  string
	Body     string
	Created  int64
}
