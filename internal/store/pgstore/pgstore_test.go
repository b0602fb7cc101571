package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision/subdivisiontest"
)

func TestCodec_RoundTrip(t *testing.T) {
	in := subdivisiontest.Reference("campus", 7)
	b, err := encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decode("campus", b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != in.Name || out.Revision != in.Revision || len(out.Edges) != len(in.Edges) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	_, err = decode("campus", []byte(`{"name":"campus","revision":1,"crs":"EPSG:4326"}`))
	if !errors.Is(err, store.ErrUndecodable) {
		t.Fatalf("decode with unknown field err=%v want ErrUndecodable", err)
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set; skipping postgres store test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	name := "pgstore-test-" + time.Now().UTC().Format("150405.000000")
	if err := s.Put(ctx, subdivisiontest.Reference(name, 1)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, subdivisiontest.Reference(name, 2)); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	if rev, ok := listed(t, s, name); !ok || rev != 2 {
		t.Fatalf("List revision=%d found=%v want 2", rev, ok)
	}
	if err := s.Delete(ctx, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := listed(t, s, name); ok {
		t.Fatal("document still listed after Delete")
	}
	if err := s.Delete(ctx, name); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second Delete err=%v want ErrNotFound", err)
	}
}

func listed(t *testing.T, s *Store, name string) (uint64, bool) {
	t.Helper()
	all, err := s.List(context.Background())
	if err != nil && !errors.Is(err, store.ErrUndecodable) {
		t.Fatalf("List: %v", err)
	}
	for _, d := range all {
		if d.Name == name {
			return d.Revision, true
		}
	}
	return 0, false
}
