// Package relay streams committed audit entries to Kafka in id order.
//
// Delivery is at-least-once: the cursor moves only after the broker
// acknowledges a batch, so a crash between produce and cursor save
// re-publishes that batch. Consumers dedupe on the entry id (the record key).
//
// Ids are assigned at insert but rows become visible at commit, so a reader
// can see id N+1 before id N. The cursor therefore only advances over a
// contiguous run of published ids. A missing id is a gap: it is waited for
// until it shows up or until the gap grace passes (a rolled back transaction
// burns its id for good). Entries above a gap are published once and
// remembered so later batches do not resend them.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"quantumtrust/internal/audit/models"
	"quantumtrust/internal/platform/kafka"
	id "quantumtrust/pkg/domain"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 2 * time.Second
	defaultGapGrace  = 30 * time.Second
)

type Source interface {
	Query(ctx context.Context, filter models.Filter) iter.Seq2[models.Entry, error]
}

type Producer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// CursorStore remembers the id of the last published entry.
type CursorStore interface {
	Load(ctx context.Context) (id.AuditEntryID, error)
	Save(ctx context.Context, last id.AuditEntryID) error
}

type Relay struct {
	source    Source
	producer  Producer
	cursor    CursorStore
	batchSize int
	interval  time.Duration
	gapGrace  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics

	mu   sync.Mutex
	sent map[id.AuditEntryID]struct{}  // published ids above the cursor
	gaps map[id.AuditEntryID]time.Time // missing ids and when they were first seen
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithGapGrace sets how long a missing id holds the cursor back. It must
// outlast the longest transaction that can append an audit entry.
func WithGapGrace(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.gapGrace = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

func New(source Source, producer Producer, cursor CursorStore, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		cursor:    cursor,
		batchSize: defaultBatchSize,
		interval:  defaultInterval,
		gapGrace:  defaultGapGrace,
		now:       time.Now,
		sent:      make(map[id.AuditEntryID]struct{}),
		gaps:      make(map[id.AuditEntryID]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// wireEntry is the JSON value published for each entry.
type wireEntry struct {
	ID           int64             `json:"id"`
	UserID       *int64            `json:"user_id"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Details      map[string]string `json:"details,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

func encode(e models.Entry) (kafka.Message, error) {
	w := wireEntry{
		ID:           int64(e.ID),
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		IPAddress:    e.IPAddress,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !e.UserID.IsNil() {
		uid := int64(e.UserID)
		w.UserID = &uid
	}
	value, err := json.Marshal(w)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode audit entry %d: %w", e.ID, err)
	}
	return kafka.Message{
		Key:   []byte(e.ID.String()),
		Value: value,
		Headers: map[string]string{
			"action":        string(e.Action),
			"resource_type": e.ResourceType,
		},
	}, nil
}

// RunOnce publishes at most one batch of unsent entries after the stored
// cursor and returns how many went out. The cursor is saved only when it
// moves.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	after, err := r.cursor.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load relay cursor: %w", err)
	}
	r.forgetBelow(after)
	now := r.now()

	var (
		msgs []kafka.Message
		ids  []id.AuditEntryID
	)
	next := after + 1
	filter := models.Filter{AfterID: after, Limit: r.batchSize + len(r.sent)}
	for e, err := range r.source.Query(ctx, filter) {
		if err != nil {
			return 0, fmt.Errorf("read audit entries: %w", err)
		}
		for missing := next; missing < e.ID; missing++ {
			if _, seen := r.gaps[missing]; !seen {
				r.gaps[missing] = now
			}
		}
		next = e.ID + 1
		delete(r.gaps, e.ID)
		if _, done := r.sent[e.ID]; done {
			continue
		}
		msg, err := encode(e)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
		ids = append(ids, e.ID)
		if len(msgs) == r.batchSize {
			break
		}
	}

	if len(msgs) > 0 {
		if err := r.producer.Publish(ctx, msgs...); err != nil {
			r.observeFailure("publish")
			return 0, err
		}
		for _, published := range ids {
			r.sent[published] = struct{}{}
		}
		if r.metrics != nil {
			r.metrics.Published.Add(float64(len(msgs)))
		}
	}

	last, expired := r.contiguous(after, now)
	if last > after {
		if err := r.cursor.Save(ctx, last); err != nil {
			r.observeFailure("cursor")
			return 0, fmt.Errorf("save relay cursor: %w", err)
		}
		for _, gap := range expired {
			r.logger.WarnContext(ctx, "audit id never became visible, skipping",
				"audit_id", gap,
				"grace", r.gapGrace,
			)
		}
		r.forgetBelow(last)
	}
	if r.metrics != nil {
		r.metrics.Cursor.Set(float64(last))
		r.metrics.OpenGaps.Set(float64(len(r.gaps)))
	}
	if len(msgs) > 0 {
		r.logger.DebugContext(ctx, "audit entries relayed", "count", len(msgs), "cursor", last)
	}
	return len(msgs), nil
}

// contiguous walks up from after over published ids and gaps whose grace has
// passed. It returns the last id reached and the gaps it gave up on.
func (r *Relay) contiguous(after id.AuditEntryID, now time.Time) (id.AuditEntryID, []id.AuditEntryID) {
	var expired []id.AuditEntryID
	last := after
	for {
		candidate := last + 1
		if _, ok := r.sent[candidate]; ok {
			last = candidate
			continue
		}
		firstSeen, ok := r.gaps[candidate]
		if ok && now.Sub(firstSeen) >= r.gapGrace {
			expired = append(expired, candidate)
			last = candidate
			continue
		}
		return last, expired
	}
}

// forgetBelow drops tracking state at or below the cursor.
func (r *Relay) forgetBelow(cursor id.AuditEntryID) {
	for sentID := range r.sent {
		if sentID <= cursor {
			delete(r.sent, sentID)
		}
	}
	for gap := range r.gaps {
		if gap <= cursor {
			delete(r.gaps, gap)
		}
	}
}

// Run relays until ctx is cancelled. A full batch is followed immediately by
// another; otherwise it waits for the next tick. Failures are logged and retried.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "audit relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		n, err := r.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.ErrorContext(ctx, "audit relay failed", "error", err)
		}
		if err == nil && n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "audit relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Relay) observeFailure(stage string) {
	if r.metrics != nil {
		r.metrics.Failures.WithLabelValues(stage).Inc()
	}
}
