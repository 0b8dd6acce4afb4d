package mail

import (
	"fmt"
	"sync"

	"github.com/campushub/notifier/internal/observability/logger"
)

// ConnPool keeps at most one live session per sender account and tracks
// per-account usage against the daily limit. One coarse mutex guards all
// state; session creation deliberately happens inside the lock so two
// concurrent sends never race to dial the same account.
type ConnPool struct {
	mu       sync.Mutex
	dialer   Dialer
	sessions map[string]Session
	usage    map[string]int
}

func NewConnPool(dialer Dialer) *ConnPool {
	return &ConnPool{
		dialer:   dialer,
		sessions: make(map[string]Session),
		usage:    make(map[string]int),
	}
}

// Get returns a live session for the account, creating or recreating one
// as needed. Returns a DeliveryError wrapping ErrQuotaExceeded when the
// account's daily limit is spent; the account must not be attempted.
func (p *ConnPool) Get(acct Account) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.usage[acct.Address] >= acct.DailyLimit {
		return nil, &DeliveryError{Account: acct.Address, Err: ErrQuotaExceeded}
	}

	if s, ok := p.sessions[acct.Address]; ok {
		if err := s.Noop(); err == nil {
			return s, nil
		} else {
			logger.L().Info("stale relay session, redialing",
				logger.Component("ConnPool"),
				logger.Account(acct.Address),
				logger.Err(err),
			)
			_ = s.Close() // best effort
			delete(p.sessions, acct.Address)
		}
	}

	s, err := p.dialer.Dial()
	if err != nil {
		return nil, &DeliveryError{Account: acct.Address, Err: fmt.Errorf("connect: %w", err)}
	}
	p.sessions[acct.Address] = s
	return s, nil
}

// IncrementUsage records one confirmed send for the account.
func (p *ConnPool) IncrementUsage(acct Account) {
	p.mu.Lock()
	p.usage[acct.Address]++
	p.mu.Unlock()
}

// Remaining reports how many sends the account has left today.
func (p *ConnPool) Remaining(acct Account) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := acct.DailyLimit - p.usage[acct.Address]
	if r < 0 {
		return 0
	}
	return r
}

// Usage reports the recorded send count for an address.
func (p *ConnPool) Usage(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage[address]
}

// CloseAll best-effort closes every live session. Never fails.
func (p *ConnPool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, s := range p.sessions {
		logger.L().Debug("closing relay session",
			logger.Component("ConnPool"),
			logger.Account(addr),
		)
		_ = s.Close()
	}
	p.sessions = make(map[string]Session)
}
