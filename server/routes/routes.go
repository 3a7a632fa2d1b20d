// Package routes registers the daemon's admin HTTP surface: /healthz and
// /status. There is no job-CRUD surface here — jobs are exogenously managed
// by the web application sharing the authoritative store, per SPEC_FULL.md.
package routes

import (
	"net/http"

	"github.com/tender-barbarian/chronos/server/handlers"
)

func Register(mux *http.ServeMux, status handlers.StatusSource, errorHandler *handlers.ErrorHandler) *http.ServeMux {
	mux.HandleFunc("/healthz", handlers.Health)
	mux.HandleFunc("/status", handlers.Status(status, errorHandler))
	return mux
}
