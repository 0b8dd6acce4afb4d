package mail

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notifier/internal/observability/logger"
)

// Result is the per-recipient outcome of one dispatch.
//
// A recipient appears in Success once delivered, in Failed with the last
// error seen while every account is still being tried, and in neither set
// when no account ever got to attempt it (quota or connection failures
// exhausted the list first). Callers must treat absence as undelivered.
type Result struct {
	Success []string
	Failed  map[string]string
	// AccountErrors records account-level failures (quota, connect,
	// auth) keyed by sender address. Diagnostic only.
	AccountErrors map[string]string
}

func newResult() Result {
	return Result{
		Failed:        make(map[string]string),
		AccountErrors: make(map[string]string),
	}
}

// Delivered reports whether rcpt ended up in the success set.
func (r Result) Delivered(rcpt string) bool {
	for _, s := range r.Success {
		if s == rcpt {
			return true
		}
	}
	return false
}

// Undelivered returns the requested recipients that have no success
// entry, in request order.
func (r Result) Undelivered(requested []string) []string {
	var out []string
	for _, rcpt := range requested {
		if !r.Delivered(rcpt) {
			out = append(out, rcpt)
		}
	}
	return out
}

// Recorder receives the outcome of every asynchronous dispatch, e.g. for
// the delivery journal. Implementations must not block long.
type Recorder interface {
	Record(jobID, subject string, recipients []string, res Result)
}

// Dispatcher sends one message across the ranked sender accounts with
// per-recipient failover: each account attempts every recipient not yet
// delivered, then the remainder falls through to the next account.
type Dispatcher struct {
	accounts []Account
	pool     *ConnPool
	queue    *Queue
	fromName string

	// Recorder is optional; set it before the first Send.
	Recorder Recorder
}

// Config for NewDispatcher.
type Config struct {
	Accounts []Account // ranked ascending by priority
	Relay    Relay
	Dialer   Dialer // defaults to RelayDialer over Relay
	Workers  int
	Capacity int
}

func NewDispatcher(cfg Config) *Dispatcher {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &RelayDialer{Relay: cfg.Relay}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 3
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 100
	}

	d := &Dispatcher{
		accounts: cfg.Accounts,
		pool:     NewConnPool(dialer),
		fromName: cfg.Relay.FromName,
	}
	d.queue = NewQueue(cfg.Workers, cfg.Capacity, d.runJob)
	return d
}

// Pool exposes the connection pool (usage counters, shutdown).
func (d *Dispatcher) Pool() *ConnPool { return d.pool }

// QueueDepth reports jobs waiting in the send queue.
func (d *Dispatcher) QueueDepth() int { return d.queue.Depth() }

// Send enqueues an asynchronous dispatch. cb, if non-nil, receives the
// result on a worker goroutine.
func (d *Dispatcher) Send(recipients []string, subject, htmlBody, textBody string, cb func(Result)) {
	job := &Job{
		ID:         uuid.New(),
		Recipients: recipients,
		Subject:    subject,
		HTMLBody:   htmlBody,
		TextBody:   textBody,
		Callback:   cb,
	}
	d.queue.Put(job)
}

// SendSync dispatches synchronously and returns per-recipient outcomes.
// It never fails as a whole: all delivery and account errors are folded
// into the Result.
func (d *Dispatcher) SendSync(recipients []string, subject, htmlBody, textBody string) Result {
	res := newResult()
	if len(recipients) == 0 {
		logger.L().Warn("dispatch with no recipients", logger.Component("Dispatcher"))
		return res
	}

	start := time.Now()
	for _, acct := range d.accounts {
		log := logger.L().With(
			logger.Component("Dispatcher"),
			logger.Account(acct.Address),
		)

		sess, err := d.pool.Get(acct)
		if err != nil {
			res.AccountErrors[acct.Address] = err.Error()
			if errors.Is(err, ErrQuotaExceeded) {
				log.Info("account quota spent, skipping")
			} else {
				log.Warn("could not get relay session", logger.Err(err))
			}
			continue
		}

		if err := sess.Login(acct.Address, acct.Password); err != nil {
			authErr := &AuthError{Account: acct.Address, Err: err}
			res.AccountErrors[acct.Address] = authErr.Error()
			log.Error("relay rejected credentials", logger.Err(err))
			continue
		}

		for _, rcpt := range recipients {
			if res.Delivered(rcpt) {
				continue
			}
			if d.pool.Remaining(acct) <= 0 {
				res.AccountErrors[acct.Address] = ErrQuotaExceeded.Error()
				log.Info("account quota spent mid-batch")
				break
			}

			msg := BuildMessage(d.fromName, acct.Address, rcpt, subject, htmlBody, textBody)
			if err := sess.Send(acct.Address, rcpt, msg); err != nil {
				res.Failed[rcpt] = err.Error()
				sendsTotal.WithLabelValues(acct.Address, "failed").Inc()
				log.Warn("delivery failed", logger.Recipient(rcpt), logger.Err(err))
				continue
			}

			res.Success = append(res.Success, rcpt)
			delete(res.Failed, rcpt)
			d.pool.IncrementUsage(acct)
			sendsTotal.WithLabelValues(acct.Address, "success").Inc()
			log.Info("delivered", logger.Recipient(rcpt))
		}

		if len(res.Success) == len(recipients) {
			break
		}
	}

	sendDuration.Observe(time.Since(start).Seconds())

	if len(res.Success) == 0 {
		logger.L().Error("no account could deliver",
			logger.Component("Dispatcher"),
			logger.Count(len(recipients)),
			logger.Any("account_errors", res.AccountErrors),
		)
	}
	return res
}

// Close stops the queue and closes every pooled session.
func (d *Dispatcher) Close() {
	d.queue.Stop()
	d.pool.CloseAll()
}

func (d *Dispatcher) runJob(job *Job) {
	log := logger.L().With(
		logger.Component("Dispatcher"),
		logger.JobID(job.ID.String()),
	)
	log.Debug("job claimed", logger.Count(len(job.Recipients)))

	res := d.SendSync(job.Recipients, job.Subject, job.HTMLBody, job.TextBody)

	if d.Recorder != nil {
		d.Recorder.Record(job.ID.String(), job.Subject, job.Recipients, res)
	}
	if job.Callback != nil {
		job.Callback(res)
	}
}
