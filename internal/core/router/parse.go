package router

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/model"
)

func ParseLocateRequest(r *http.Request) (model.LocateRequest, error) {
	q := r.URL.Query()
	layer := strings.TrimSpace(q.Get("layer"))
	if layer == "" {
		return model.LocateRequest{}, errors.New("missing required parameter: layer")
	}
	x, err := parseCoord(q.Get("x"))
	if err != nil {
		return model.LocateRequest{}, fmt.Errorf("invalid x: %w", err)
	}
	y, err := parseCoord(q.Get("y"))
	if err != nil {
		return model.LocateRequest{}, fmt.Errorf("invalid y: %w", err)
	}
	return model.LocateRequest{Layer: layer, X: x, Y: y}, nil
}

func parseCoord(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("missing")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("must be finite")
	}
	return f, nil
}
