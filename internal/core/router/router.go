// Package router holds the HTTP handlers of the locator service.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/model"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/observability"
	mylog "github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/logger"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/registry"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

// Registry is what the handlers need from *registry.Registry.
type Registry interface {
	Get(name string) (*registry.Entry, bool)
	List() []*registry.Entry
	Locate(name string, x, y float64) (*registry.Entry, slab.Location, error)
	LocateBatch(name string, pts [][2]float64) (*registry.Entry, []slab.Location, error)
	Replace(ctx context.Context, doc subdivision.Document) (*registry.Entry, bool, error)
	Delete(ctx context.Context, name string) error
	SlabHotness(e *registry.Entry) []float64
}

type Limits struct {
	MaxBatchPoints   int
	MaxDocumentBytes int64
}

type API struct {
	log    *slog.Logger
	reg    Registry
	limits Limits
}

func New(logger *slog.Logger, reg Registry, limits Limits) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.MaxBatchPoints <= 0 {
		limits.MaxBatchPoints = 10000
	}
	if limits.MaxDocumentBytes <= 0 {
		limits.MaxDocumentBytes = 8 << 20
	}
	return &API{log: logger, reg: reg, limits: limits}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records the request under a fixed route label.
func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) Locate() http.HandlerFunc {
	return instrument("/locate", func(w http.ResponseWriter, r *http.Request) {
		q, err := ParseLocateRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e, loc, err := a.reg.Locate(q.Layer, q.X, q.Y)
		if err != nil {
			a.fail(w, r, q.Layer, err)
			return
		}
		writeJSON(w, http.StatusOK, model.LocateResponse{
			Layer:    e.Name,
			Revision: e.Revision,
			X:        q.X,
			Y:        q.Y,
			Face:     string(loc.Face),
			Kind:     loc.Kind.String(),
			Slab:     loc.Slab,
		})
	})
}

func (a *API) LocateBatch() http.HandlerFunc {
	return instrument("/locate/batch", func(w http.ResponseWriter, r *http.Request) {
		var req model.BatchRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.limits.MaxDocumentBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Layer = strings.TrimSpace(req.Layer)
		if req.Layer == "" {
			http.Error(w, "missing required field: layer", http.StatusBadRequest)
			return
		}
		if len(req.Points) > a.limits.MaxBatchPoints {
			http.Error(w, fmt.Sprintf("too many points: %d > %d", len(req.Points), a.limits.MaxBatchPoints),
				http.StatusRequestEntityTooLarge)
			return
		}

		e, locs, err := a.reg.LocateBatch(req.Layer, req.Points)
		if err != nil {
			a.fail(w, r, req.Layer, err)
			return
		}
		out := model.BatchResponse{Layer: e.Name, Revision: e.Revision, Results: make([]model.BatchResult, len(locs))}
		for i, loc := range locs {
			out.Results[i] = model.BatchResult{
				X:    req.Points[i][0],
				Y:    req.Points[i][1],
				Face: string(loc.Face),
				Kind: loc.Kind.String(),
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func summary(e *registry.Entry) model.SubdivisionSummary {
	st := e.Locator.Stats()
	return model.SubdivisionSummary{
		Name:       e.Name,
		Revision:   e.Revision,
		BuiltAt:    e.BuiltAt,
		Slabs:      st.Slabs,
		Entries:    st.Entries,
		MaxPerSlab: st.MaxPerSlab,
		Vertical:   st.Vertical,
	}
}

func (a *API) ListSubdivisions() http.HandlerFunc {
	return instrument("/subdivisions", func(w http.ResponseWriter, _ *http.Request) {
		entries := a.reg.List()
		out := make([]model.SubdivisionSummary, len(entries))
		for i, e := range entries {
			out[i] = summary(e)
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func (a *API) GetSubdivision() http.HandlerFunc {
	return instrument("/subdivisions/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		e, ok := a.reg.Get(name)
		if !ok {
			http.Error(w, "subdivision not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, e.Doc)
	})
}

func (a *API) PutSubdivision() http.HandlerFunc {
	return instrument("/subdivisions/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !subdivision.ValidName(name) {
			http.Error(w, fmt.Sprintf("invalid name %q", name), http.StatusBadRequest)
			return
		}
		doc, err := subdivision.Decode(http.MaxBytesReader(w, r.Body, a.limits.MaxDocumentBytes))
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if doc.Name == "" {
			doc.Name = name
		}
		if doc.Name != name {
			http.Error(w, fmt.Sprintf("document name %q does not match path %q", doc.Name, name), http.StatusBadRequest)
			return
		}

		e, created, err := a.reg.Replace(r.Context(), doc)
		if err != nil {
			a.fail(w, r, name, err)
			return
		}
		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		writeJSON(w, code, summary(e))
	})
}

func (a *API) DeleteSubdivision() http.HandlerFunc {
	return instrument("/subdivisions/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := a.reg.Delete(r.Context(), name); err != nil {
			a.fail(w, r, name, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (a *API) Slabs() http.HandlerFunc {
	return instrument("/subdivisions/{name}/slabs", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		e, ok := a.reg.Get(name)
		if !ok {
			http.Error(w, "subdivision not found", http.StatusNotFound)
			return
		}
		slabs := e.Locator.Slabs()
		hot := a.reg.SlabHotness(e)
		out := model.SlabsResponse{
			Name:     e.Name,
			Revision: e.Revision,
			XCoords:  e.Locator.XCoords(),
			Slabs:    make([]model.SlabView, len(slabs)),
		}
		for i, s := range slabs {
			v := model.SlabView{Index: i, Start: s.Start, End: s.End, Edges: make([]model.SlabEdgeView, len(s.Edges))}
			if i < len(hot) {
				v.Hotness = hot[i]
			}
			for j, se := range s.Edges {
				v.Edges[j] = model.SlabEdgeView{
					Face:  string(se.Face),
					MidY:  se.MidY,
					Left:  [2]float64{se.Left.X, se.Left.Y},
					Right: [2]float64{se.Right.X, se.Right.Y},
				}
			}
			out.Slabs[i] = v
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// fail maps registry and builder errors to status codes.
func (a *API) fail(w http.ResponseWriter, r *http.Request, layer string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, registry.ErrStaleRevision):
		code = http.StatusConflict
	case errors.Is(err, slab.ErrInvalidGraph):
		code = http.StatusBadRequest
	case errors.Is(err, slab.ErrDegenerateSubdivision):
		code = http.StatusUnprocessableEntity
	}
	if code == http.StatusInternalServerError {
		ctx := mylog.WithLayer(r.Context(), layer)
		a.log.ErrorContext(ctx, "request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal server error", code)
		return
	}
	http.Error(w, err.Error(), code)
}
