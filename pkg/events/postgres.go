package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havenlabs/haven/pkg/httputil"
)

// PostgresSink inserts events into the dashboard's events table. Writes are
// asynchronous and bounded by a semaphore so a slow database never stalls an
// enforcement decision; at capacity the event is dropped and counted.
type PostgresSink struct {
	pool    *pgxpool.Pool
	sem     *httputil.Semaphore
	timeout time.Duration
}

var _ Sink = (*PostgresSink)(nil)

const insertEventSQL = `
INSERT INTO events (event_type, child_id, domain, category, reason_code, action, rule_id, confidence, risk_score, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// NewPostgresSink connects a pool created by the caller.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{
		pool:    pool,
		sem:     httputil.NewSemaphore(64),
		timeout: 5 * time.Second,
	}
}

// Emit queues one insert. Returns an error only when the event is dropped at
// capacity; the insert itself happens in the background.
func (p *PostgresSink) Emit(_ context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if !p.sem.TryAcquire() {
		return fmt.Errorf("event sink at capacity, dropped (total %d)", p.sem.DroppedCount())
	}

	go func() {
		defer p.sem.Release()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		_, err := p.pool.Exec(ctx, insertEventSQL,
			ev.Type, ev.ChildID, ev.Domain, ev.Category, ev.ReasonCode,
			ev.Action, ev.RuleID, ev.Confidence, ev.RiskScore, ev.Timestamp)
		if err != nil {
			// Fall back to the log so the event is not silently lost.
			log.Printf("WARNING: postgres event insert failed: %v", err)
			_ = LogSink{}.Emit(context.Background(), ev)
		}
	}()
	return nil
}
