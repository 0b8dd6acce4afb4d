package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campushub/notifier/internal/observability/logger"
)

// codeEntry is one live (code, expiry) pair.
type codeEntry struct {
	code      string
	expiresAt time.Time
}

// CodeStore holds at most one live verification code per email. All
// mutations happen under one mutex; the background sweeper evicts
// expired entries under the same lock.
//
// Verify deletes the entry on a successful match, so a code is single-use
// even under concurrent verification attempts for the same email.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]codeEntry

	ttl           time.Duration
	sweepInterval time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewCodeStore creates a store with the given code TTL and sweep
// interval. Zero values fall back to 15m / 60s.
func NewCodeStore(ttl, sweepInterval time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &CodeStore{
		codes:         make(map[string]codeEntry),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// TTL returns the configured code lifetime.
func (s *CodeStore) TTL() time.Duration { return s.ttl }

// Add sets or overwrites the code for email with expiry now+TTL.
// Overwriting invalidates any previous code: only the latest is valid.
func (s *CodeStore) Add(email, code string) {
	s.mu.Lock()
	s.codes[email] = codeEntry{code: code, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

// Verify checks the submitted code. Absent or expired entries fail;
// expired entries are deleted on the spot. A successful match deletes
// the entry before returning true.
func (s *CodeStore) Verify(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.codes[email]
	if !ok {
		return false
	}
	if s.now().After(e.expiresAt) {
		delete(s.codes, email)
		return false
	}
	if e.code != code {
		return false
	}
	delete(s.codes, email)
	return true
}

// Remove deletes the entry for email. Idempotent.
func (s *CodeStore) Remove(email string) {
	s.mu.Lock()
	delete(s.codes, email)
	s.mu.Unlock()
}

// Len reports live entries, expired ones included until swept.
func (s *CodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// Sweep deletes every expired entry and reports how many went.
func (s *CodeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, e := range s.codes {
		if now.After(e.expiresAt) {
			delete(s.codes, email)
			removed++
		}
	}
	return removed
}

// maxConsecutiveSweepFailures triggers the long back-off sleep.
const maxConsecutiveSweepFailures = 3

// StartSweeper runs the eviction loop until ctx is cancelled. The loop
// never exits on its own: a sweep failure is counted, and after three
// consecutive failures the loop sleeps five intervals before resuming.
func (s *CodeStore) StartSweeper(ctx context.Context) {
	go func() {
		log := logger.L().With(logger.Component("CodeStore"))
		log.Info("code sweeper started", logger.Duration(s.sweepInterval))

		consecutive := 0
		for {
			select {
			case <-ctx.Done():
				log.Info("code sweeper stopped")
				return
			case <-time.After(s.sweepInterval):
			}

			if err := s.safeSweep(); err != nil {
				consecutive++
				log.Error("sweep failed",
					logger.Int("consecutive", consecutive),
					logger.Err(err),
				)
				if consecutive >= maxConsecutiveSweepFailures {
					log.Error("sweep failing repeatedly, backing off")
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * s.sweepInterval):
					}
					consecutive = 0
				}
				continue
			}
			consecutive = 0
		}
	}()
}

// safeSweep contains panics so a bad sweep never kills the loop.
func (s *CodeStore) safeSweep() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
	}()
	if n := s.Sweep(); n > 0 {
		logger.L().Debug("swept expired codes",
			logger.Component("CodeStore"),
			logger.Count(n),
		)
	}
	return nil
}
