package handlers

import "net/http"

// Health answers /healthz with a bare 200, for a load balancer or process
// supervisor that only cares whether the process is accepting connections at
// all.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
