// Package logger builds the zerolog root logger and carries request-scoped
// fields through context.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level     string
	Console   bool
	SampleN   int
	Service   string
	Component string
}

// fields is what a request, update message or background job attaches to
// its context. Zero values are omitted from log lines.
type fields struct {
	requestID string
	component string
	layer     string
	revision  uint64
}

type ctxKey struct{}

func fieldsFrom(ctx context.Context) fields {
	f, _ := ctx.Value(ctxKey{}).(fields)
	return f
}

func with(ctx context.Context, set func(*fields)) context.Context {
	f := fieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, ctxKey{}, f)
}

func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return with(ctx, func(f *fields) { f.requestID = reqID })
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string { return fieldsFrom(ctx).requestID }

func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return with(ctx, func(f *fields) { f.component = component })
}

// WithLayer tags the context with the subdivision being queried or changed.
func WithLayer(ctx context.Context, layer string) context.Context {
	if layer == "" {
		return ctx
	}
	return with(ctx, func(f *fields) { f.layer = layer })
}

// WithRevision tags the context with the subdivision revision being applied.
func WithRevision(ctx context.Context, rev uint64) context.Context {
	if rev == 0 {
		return ctx
	}
	return with(ctx, func(f *fields) { f.revision = rev })
}

func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// ParseLevel maps debug|info|warn|error to a zerolog level. Anything else
// is info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var fieldNames sync.Once

func setFieldNames() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"
}

// Build returns a root logger writing JSON lines to out (stdout when nil).
// The level applies to this logger only, so tests can build loggers with
// different levels side by side.
func Build(cfg Config, out io.Writer) zerolog.Logger {
	fieldNames.Do(setFieldNames)
	if out == nil {
		out = os.Stdout
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := zerolog.New(out).Level(ParseLevel(cfg.Level))
	if cfg.SampleN > 1 {
		n := uint32(math.MaxUint32)
		if uint64(cfg.SampleN) < math.MaxUint32 {
			n = uint32(cfg.SampleN)
		}
		base = base.Sample(&zerolog.BasicSampler{N: n})
	}

	c := base.With().Timestamp()
	if cfg.Service != "" {
		c = c.Str("service", cfg.Service)
	}
	if cfg.Component != "" {
		c = c.Str("component", cfg.Component)
	}
	return c.Logger()
}

// FromContext returns parent with the context's fields applied. A nil parent
// yields a discarding logger.
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	if parent == nil {
		l := zerolog.Nop()
		return &l
	}
	f := fieldsFrom(ctx)
	if f == (fields{}) {
		return parent
	}
	w := parent.With()
	if f.requestID != "" {
		w = w.Str("request_id", f.requestID)
	}
	if f.component != "" {
		w = w.Str("component", f.component)
	}
	if f.layer != "" {
		w = w.Str("layer", f.layer)
	}
	if f.revision != 0 {
		w = w.Uint64("revision", f.revision)
	}
	l := w.Logger()
	return &l
}
