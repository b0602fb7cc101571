// Package health serves liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

// Registry reports whether startup loading finished and how many
// subdivisions are served.
type Registry interface {
	Ready() bool
	Len() int
}

// Gate is an extra readiness condition, such as the update runner holding
// partitions.
type Gate interface {
	Ready() bool
}

func Readiness(reg Registry, gates ...Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status       string `json:"status"`
			Subdivisions int    `json:"subdivisions"`
		}
		ready := reg.Ready()
		for _, g := range gates {
			if g != nil && !g.Ready() {
				ready = false
			}
		}
		out := resp{Status: "not_ready", Subdivisions: reg.Len()}
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
