package updates

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/registry"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision/subdivisiontest"
)

type sess struct {
	ctx    context.Context
	claims map[string][]int32
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return s.claims }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "subdivision-updates" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

// flakyRegistry fails the next failN writes before delegating.
type flakyRegistry struct {
	*registry.Registry
	mu    sync.Mutex
	failN int
}

func (f *flakyRegistry) Replace(ctx context.Context, d subdivision.Document) (*registry.Entry, bool, error) {
	f.mu.Lock()
	if f.failN > 0 {
		f.failN--
		f.mu.Unlock()
		return nil, false, errors.New("store unavailable")
	}
	f.mu.Unlock()
	return f.Registry.Replace(ctx, d)
}

func replaceMsg(t *testing.T, offset int64, name string, rev uint64) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(NewReplace(subdivisiontest.Reference(name, rev), time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: "subdivision-updates", Offset: offset, Timestamp: time.Now(), Value: b}
}

func deleteMsg(t *testing.T, offset int64, name string, rev uint64) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(NewDelete(name, rev, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: "subdivision-updates", Offset: offset, Value: b}
}

func newRunner(t *testing.T, a Applier) (*Runner, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := Config{Enabled: true, Topic: "subdivision-updates", DedupeSize: 16}
	return New(cfg, a, Options{Register: reg}), reg
}

func consume(t *testing.T, r *Runner, msgs ...*sarama.ConsumerMessage) (*sess, error) {
	t.Helper()
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	s := &sess{ctx: t.Context()}
	g := &groupHandler{process: r.handleMessage}
	return s, g.ConsumeClaim(s, &claim{msgs: ch})
}

func TestConsume_ReplaceThenDelete_MarksInOrder(t *testing.T) {
	reg := registry.New()
	r, _ := newRunner(t, reg)

	s, err := consume(t, r,
		replaceMsg(t, 10, "campus", 1),
		replaceMsg(t, 11, "campus", 2),
		deleteMsg(t, 12, "campus", 3),
		replaceMsg(t, 13, "lab", 1),
	)
	if err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	want := []int64{10, 11, 12, 13}
	if len(s.marked) != len(want) {
		t.Fatalf("marked=%v want %v", s.marked, want)
	}
	for i := range want {
		if s.marked[i] != want[i] {
			t.Fatalf("marked=%v want %v", s.marked, want)
		}
	}
	if _, ok := reg.Get("campus"); ok {
		t.Fatal("campus should be deleted")
	}
	if e, ok := reg.Get("lab"); !ok || e.Revision != 1 {
		t.Fatalf("lab entry %+v ok=%v", e, ok)
	}
}

func TestConsume_DuplicateRevisionSkipped(t *testing.T) {
	reg := registry.New()
	r, _ := newRunner(t, reg)

	if _, err := consume(t, r, replaceMsg(t, 1, "campus", 2)); err != nil {
		t.Fatal(err)
	}
	s, err := consume(t, r, replaceMsg(t, 2, "campus", 2), replaceMsg(t, 3, "campus", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.marked) != 2 {
		t.Fatalf("skipped messages must still be marked, got %v", s.marked)
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(OpReplace, "stale")); got != 2 {
		t.Fatalf("stale=%g want 2", got)
	}
	if got := testutil.ToFloat64(r.ms.revision.WithLabelValues("campus")); got != 2 {
		t.Fatalf("applied revision=%g want 2", got)
	}
	if e, _ := reg.Get("campus"); e.Revision != 2 {
		t.Fatalf("revision=%d", e.Revision)
	}
}

func TestConsume_FailedApplyNotMarked(t *testing.T) {
	fr := &flakyRegistry{Registry: registry.New(), failN: 1}
	r, _ := newRunner(t, fr)

	msg := replaceMsg(t, 5, "campus", 1)
	s, err := consume(t, r, msg, replaceMsg(t, 6, "campus", 2))
	if err == nil {
		t.Fatal("expected error from failing apply")
	}
	if len(s.marked) != 0 {
		t.Fatalf("offset marked despite failure: %v", s.marked)
	}

	s, err = consume(t, r, msg)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("marked=%v want [5]", s.marked)
	}
	if _, ok := fr.Get("campus"); !ok {
		t.Fatal("redelivered replace not applied")
	}
}

func TestConsume_PoisonMessagesDropped(t *testing.T) {
	reg := registry.New()
	r, _ := newRunner(t, reg)

	degenerate, _ := json.Marshal(NewReplace(subdivisiontest.Degenerate("flat", 1), time.Now()))
	s, err := consume(t, r,
		&sarama.ConsumerMessage{Offset: 1, Value: []byte("{not json")},
		&sarama.ConsumerMessage{Offset: 2, Value: []byte(`{"version":2,"op":"replace","layer":"x","revision":1,"ts":"2024-01-01T00:00:00Z"}`)},
		&sarama.ConsumerMessage{Offset: 3, Value: degenerate},
		replaceMsg(t, 4, "campus", 1),
	)
	if err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 4 {
		t.Fatalf("marked=%v", s.marked)
	}
	rejected := testutil.ToFloat64(r.ms.events.WithLabelValues(opUnknown, "rejected")) +
		testutil.ToFloat64(r.ms.events.WithLabelValues(OpReplace, "rejected"))
	if rejected != 3 {
		t.Fatalf("rejected=%g want 3", rejected)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len=%d", reg.Len())
	}
}

func TestConsume_DeleteAtPublishedRevision(t *testing.T) {
	reg := registry.New()
	r, _ := newRunner(t, reg)

	s, err := consume(t, r, replaceMsg(t, 1, "campus", 2), deleteMsg(t, 2, "campus", 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.marked) != 2 {
		t.Fatalf("marked=%v", s.marked)
	}
	if _, ok := reg.Get("campus"); ok {
		t.Fatal("delete at the published revision left campus published")
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(OpDelete, "applied")); got != 1 {
		t.Fatalf("delete applied=%g want 1", got)
	}
	if got := testutil.ToFloat64(r.ms.revision.WithLabelValues("campus")); got != 0 {
		t.Fatalf("applied revision=%g want 0 after delete", got)
	}

	// a redelivered replace of the deleted revision must not bring it back
	if _, err := consume(t, r, replaceMsg(t, 1, "campus", 2)); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get("campus"); ok {
		t.Fatal("replayed replace resurrected a deleted revision")
	}
}

func TestConsume_LagPerPartition(t *testing.T) {
	r, _ := newRunner(t, registry.New())
	m := replaceMsg(t, 1, "campus", 1)
	m.Partition = 3
	m.Timestamp = time.Now().Add(-time.Minute)
	if _, err := consume(t, r, m); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(r.ms.lag.WithLabelValues("3")); got < 59 {
		t.Fatalf("lag=%g want about 60", got)
	}
}

func TestConsume_RegistryNewerThanEvent(t *testing.T) {
	reg := registry.New()
	if _, _, err := reg.Replace(context.Background(), subdivisiontest.Reference("campus", 7)); err != nil {
		t.Fatal(err)
	}
	r, _ := newRunner(t, reg)
	if _, err := consume(t, r, deleteMsg(t, 1, "campus", 6)); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get("campus"); !ok {
		t.Fatal("older delete removed a newer revision")
	}
}

func TestReadiness_FollowsAssignment(t *testing.T) {
	r, _ := newRunner(t, registry.New())
	if ok, _ := r.Readiness(); ok {
		t.Fatal("ready before assignment")
	}
	g := &groupHandler{setup: r.onAssign, cleanup: func(sarama.ConsumerGroupSession) { r.onRevoke() }}
	s := &sess{ctx: t.Context(), claims: map[string][]int32{"subdivision-updates": {0, 2}}}
	_ = g.Setup(s)
	ok, parts := r.Readiness()
	if !ok || len(parts) != 2 || !r.Ready() {
		t.Fatalf("ok=%v parts=%v", ok, parts)
	}
	_ = g.Cleanup(s)
	if r.Ready() {
		t.Fatal("ready after cleanup")
	}

	disabled := New(Config{}, nil, Options{})
	if !disabled.Ready() {
		t.Fatal("disabled runner must report ready")
	}
	if err := disabled.Start(t.Context()); err != nil {
		t.Fatalf("disabled Start: %v", err)
	}
}
