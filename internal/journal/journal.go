// Package journal persists per-recipient delivery outcomes to Postgres
// for abuse audits. It never stores verification codes; the code store
// stays memory-only.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushub/notifier/internal/mail"
	"github.com/campushub/notifier/internal/observability/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS delivery_journal (
    id          BIGSERIAL PRIMARY KEY,
    job_id      TEXT        NOT NULL,
    recipient   TEXT        NOT NULL,
    subject     TEXT        NOT NULL,
    status      TEXT        NOT NULL, -- delivered | failed | undelivered
    detail      TEXT        NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS delivery_journal_recipient_idx
    ON delivery_journal (recipient, recorded_at);
`

// Journal writes one row per recipient outcome.
type Journal struct {
	pool *pgxpool.Pool
}

// Open connects, pings and ensures the table exists.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ensure schema: %w", err)
	}
	return &Journal{pool: pool}, nil
}

// Record implements mail.Recorder. Failures are logged, never propagated:
// an audit row must not fail a delivery.
func (j *Journal) Record(jobID, subject string, recipients []string, res mail.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, rcpt := range recipients {
		status := "undelivered"
		detail := ""
		if res.Delivered(rcpt) {
			status = "delivered"
		} else if msg, ok := res.Failed[rcpt]; ok {
			status = "failed"
			detail = msg
		}

		_, err := j.pool.Exec(ctx,
			`INSERT INTO delivery_journal (job_id, recipient, subject, status, detail)
			 VALUES ($1, $2, $3, $4, $5)`,
			jobID, rcpt, subject, status, detail,
		)
		if err != nil {
			logger.L().Warn("journal insert failed",
				logger.Component("Journal"),
				logger.JobID(jobID),
				logger.Recipient(rcpt),
				logger.Err(err),
			)
		}
	}
}

// Close releases the connection pool.
func (j *Journal) Close() {
	j.pool.Close()
}
