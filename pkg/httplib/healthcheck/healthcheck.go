package healthcheck

import (
	"fmt"
	"net/http"
)

// Checker reports whether a component can serve traffic.
type Checker interface {
	Healthy() error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() error

// Healthy calls f.
func (f CheckerFunc) Healthy() error {
	return f()
}

// HealthCheck is the health check handler.
type HealthCheck struct {
	Checkers []Checker
}

// Handler is used to control the flow of GET /health endpoint
func (hc HealthCheck) Handler(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if IsHealthCheckRequest(r) {
			hc.ServeHTTP(w, r)

			return
		}

		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// ServeHTTP serve http request for health check.
// Any failing checker turns the response into 503 with the failure reasons.
func (hc HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var failures []error
	for _, c := range hc.Checkers {
		if err := c.Healthy(); err != nil {
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		for _, err := range failures {
			fmt.Fprintln(w, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// IsHealthCheckRequest is used to check if the request is a health check request
func IsHealthCheckRequest(r *http.Request) bool {
	return r.Method == "GET" && r.URL.Path == "/health"
}
