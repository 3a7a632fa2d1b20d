package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tender-barbarian/chronos/repository/models"
)

var methodNames = map[models.RequestMethod]string{
	models.MethodGET:     http.MethodGet,
	models.MethodPOST:    http.MethodPost,
	models.MethodOPTIONS: http.MethodOptions,
	models.MethodHEAD:    http.MethodHead,
	models.MethodPUT:     http.MethodPut,
	models.MethodDELETE:  http.MethodDelete,
	models.MethodTRACE:   http.MethodTrace,
	models.MethodPATCH:   http.MethodPatch,
	models.MethodCONNECT: http.MethodConnect,
}

// Client executes a single Request over HTTP and always returns a
// populated JobResult — it never returns a bare error, since every outcome
// (including a failed connection) must become a result the ingest pipeline
// can log and act on.
type Client struct {
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{HTTPClient: &http.Client{}}
}

func (c *Client) Execute(ctx context.Context, req *Request) *models.JobResult {
	result := req.NewResult()

	started := time.Now()
	result.DateStarted = started.UnixMilli()
	result.Jitter = result.DateStarted - result.DatePlanned

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	method := methodNames[req.Method]
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		c.fail(result, started, models.StatusFailedOther, err)
		return result
	}
	if req.UseAuth {
		httpReq.SetBasicAuth(req.AuthUser, req.AuthPass)
	}
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Key, h.Value)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.fail(result, started, models.StatusFailedTimeout, err)
		} else {
			c.fail(result, started, models.StatusFailedOther, err)
		}
		return result
	}
	defer resp.Body.Close() // nolint

	respBody, err := io.ReadAll(resp.Body)
	result.Duration = time.Since(started).Milliseconds()
	result.HTTPStatus = resp.StatusCode
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Status = models.StatusFailedTimeout
		} else {
			result.Status = models.StatusFailedOther
		}
		result.StatusText = "reading response body: " + err.Error()
		return result
	}

	result.Status = models.StatusOK
	result.StatusText = "OK"
	if result.SaveResponses {
		result.ResponseHeaders = formatHeaders(resp.Header)
		result.ResponseBody = string(respBody)
	}
	return result
}

func (c *Client) fail(result *models.JobResult, started time.Time, status models.JobStatus, err error) {
	result.Duration = time.Since(started).Milliseconds()
	result.Status = status
	result.StatusText = err.Error()
}

func formatHeaders(h http.Header) string {
	var b strings.Builder
	for key, values := range h {
		for _, v := range values {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	return b.String()
}
