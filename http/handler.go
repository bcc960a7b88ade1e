package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ReadinessCheck returns why a component cannot serve requests yet, or nil.
type ReadinessCheck func() error

type readinessResponse struct {
	Ready  bool     `json:"ready"`
	Errors []string `json:"errors,omitempty"`
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HandleReadyCheck reports whether every check passes. Failed checks are
// listed in the response body.
func HandleReadyCheck(checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := readinessResponse{Ready: true}
		for _, check := range checks {
			if err := check(); err != nil {
				res.Ready = false
				res.Errors = append(res.Errors, err.Error())
			}
		}

		status := http.StatusOK
		if !res.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, res)
	}
}

// ShutdownCheck fails once done is closed.
func ShutdownCheck(done <-chan struct{}) ReadinessCheck {
	return func() error {
		select {
		case <-done:
			return errors.New("server is shutting down")
		default:
			return nil
		}
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}
