package updates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	mylog "github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/logger"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/registry"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

// Applier is the part of the registry the runner writes to.
type Applier interface {
	Get(name string) (*registry.Entry, bool)
	Replace(ctx context.Context, doc subdivision.Document) (*registry.Entry, bool, error)
	Delete(ctx context.Context, name string) error
}

type Runner struct {
	log *slog.Logger
	cfg Config
	reg Applier
	ms  *metricSet
	ver *revisionDedupe

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
}

func New(cfg Config, reg Applier, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:    opts.Logger,
		cfg:    cfg,
		reg:    reg,
		ms:     newMetricSet(opts.Register),
		ver:    newRevisionDedupe(cfg.DedupeSize),
		assign: map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("update runner disabled")
		return nil
	}
	if r.reg == nil {
		return errors.New("update runner: registry is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{
		setup:   r.onAssign,
		cleanup: func(sarama.ConsumerGroupSession) { r.onRevoke() },
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()
		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("update runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("update runner stopped")
}

func (r *Runner) onAssign(sess sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assign = map[int32]struct{}{}
	for _, parts := range sess.Claims() {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
	r.assigned.Store(true)
}

func (r *Runner) onRevoke() {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
}

// Readiness reports whether the group currently holds partitions.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// Ready is Readiness without the partition list. A disabled runner is
// always ready.
func (r *Runner) Ready() bool {
	if !r.cfg.Enabled {
		return true
	}
	ok, _ := r.Readiness()
	return ok
}

// handleMessage applies one event. Malformed events and subdivisions that do
// not build are dropped so they cannot stall the partition; any other
// failure is returned and the offset stays uncommitted.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	r.ms.seen(msg.Partition, msg.Timestamp)

	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		r.reject(ctx, msg, fmt.Errorf("decode: %w", err))
		r.ms.done(opUnknown, outcomeRejected, start)
		return nil
	}
	if err := ev.Validate(); err != nil {
		r.reject(ctx, msg, fmt.Errorf("validate: %w", err))
		r.ms.done(opUnknown, outcomeRejected, start)
		return nil
	}
	ctx = mylog.WithRevision(mylog.WithLayer(ctx, ev.Layer), ev.Revision)

	o, err := r.apply(ctx, ev)
	if errors.Is(err, slab.ErrInvalidGraph) || errors.Is(err, slab.ErrDegenerateSubdivision) {
		r.reject(ctx, msg, err)
		o, err = outcomeRejected, nil
	}
	r.ms.done(ev.Op, o, start)
	return err
}

// apply brings the registry up to ev. A replace needs a revision above the
// published one. A delete removes the published revision when its own
// revision is equal or higher, so deleting "campus@2" drops campus while
// it still serves revision 2.
func (r *Runner) apply(ctx context.Context, ev Event) (outcome, error) {
	del := ev.Op == OpDelete
	if r.ver.stale(ev.Layer, ev.Revision, del) {
		return outcomeStale, nil
	}
	if cur, ok := r.reg.Get(ev.Layer); ok {
		if cur.Revision > ev.Revision || (!del && cur.Revision == ev.Revision) {
			r.ver.record(ev.Layer, cur.Revision)
			return outcomeStale, nil
		}
	}

	if del {
		err := r.reg.Delete(ctx, ev.Layer)
		if err != nil && !errors.Is(err, registry.ErrNotFound) {
			return outcomeFailed, fmt.Errorf("delete %q: %w", ev.Layer, err)
		}
	} else {
		_, _, err := r.reg.Replace(ctx, *ev.Subdivision)
		if errors.Is(err, registry.ErrStaleRevision) {
			return outcomeStale, nil
		}
		if err != nil {
			return outcomeFailed, fmt.Errorf("replace %q: %w", ev.Layer, err)
		}
	}
	r.ver.record(ev.Layer, ev.Revision)
	r.ms.applied(ev)
	return outcomeApplied, nil
}

func (r *Runner) reject(ctx context.Context, msg *sarama.ConsumerMessage, err error) {
	r.log.WarnContext(ctx, "dropping update message",
		"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

// ConsumeClaim marks each offset only after the message was applied.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
