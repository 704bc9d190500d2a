package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Liveness reports that the process is serving.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

// Pinger is a dependency the service needs to be ready, such as the export
// cache backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness pings every named dependency. A nil map means always ready.
func Readiness(deps map[string]Pinger, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks,omitempty"`
		}
		out := resp{Status: "ready"}
		if len(deps) > 0 {
			out.Checks = make(map[string]string, len(deps))
		}
		for name, p := range deps {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				out.Status = "not_ready"
				out.Checks[name] = err.Error()
				continue
			}
			out.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
