package mail

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
)

// fakeSession scripts Noop/Login/Send outcomes and counts calls.
type fakeSession struct {
	mu sync.Mutex

	noopErr  error
	loginErr error
	sendErr  error

	// failRecipients makes Send fail only for these addresses.
	failRecipients map[string]bool

	noops  int
	logins int
	sent   []string
	closed bool
}

func (s *fakeSession) Noop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noops++
	return s.noopErr
}

func (s *fakeSession) Login(user, pass string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	return s.loginErr
}

func (s *fakeSession) Send(from, rcpt string, msg io.WriterTo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	if s.failRecipients[rcpt] {
		return fmt.Errorf("550 mailbox unavailable: %s", rcpt)
	}
	s.sent = append(s.sent, rcpt)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) sentTo() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// fakeDialer hands out sessions from a script, one per Dial.
type fakeDialer struct {
	mu       sync.Mutex
	sessions []*fakeSession
	dialErr  error
	dials    int
}

func (d *fakeDialer) Dial() (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	if d.dials >= len(d.sessions) {
		d.sessions = append(d.sessions, &fakeSession{})
	}
	s := d.sessions[d.dials]
	d.dials++
	return s, nil
}

func testAccount(addr string, limit int) Account {
	return Account{Address: addr, Password: "pw", Priority: 1, DailyLimit: limit}
}

func TestConnPool_ReusesLiveSession(t *testing.T) {
	d := &fakeDialer{}
	p := NewConnPool(d)
	acct := testAccount("a@x", 10)

	s1, err := p.Get(acct)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	s2, err := p.Get(acct)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the cached session back")
	}
	if d.dials != 1 {
		t.Fatalf("expected 1 dial, got %d", d.dials)
	}
}

func TestConnPool_RedialsStaleSession(t *testing.T) {
	stale := &fakeSession{}
	fresh := &fakeSession{}
	d := &fakeDialer{sessions: []*fakeSession{stale, fresh}}
	p := NewConnPool(d)
	acct := testAccount("a@x", 10)

	if _, err := p.Get(acct); err != nil {
		t.Fatalf("Get: %v", err)
	}

	stale.noopErr = errors.New("connection reset")
	s, err := p.Get(acct)
	if err != nil {
		t.Fatalf("Get after staleness: %v", err)
	}
	if s != fresh {
		t.Fatalf("expected a fresh session after failed probe")
	}
	if !stale.closed {
		t.Fatalf("stale session should be closed")
	}
	if d.dials != 2 {
		t.Fatalf("expected a redial, got %d dials", d.dials)
	}
}

func TestConnPool_QuotaBlocksGet(t *testing.T) {
	d := &fakeDialer{}
	p := NewConnPool(d)
	acct := testAccount("a@x", 2)

	if _, err := p.Get(acct); err != nil {
		t.Fatalf("Get: %v", err)
	}
	p.IncrementUsage(acct)
	p.IncrementUsage(acct)

	_, err := p.Get(acct)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.Account != acct.Address {
		t.Fatalf("expected DeliveryError for %s, got %v", acct.Address, err)
	}
	if p.Remaining(acct) != 0 {
		t.Fatalf("expected 0 remaining, got %d", p.Remaining(acct))
	}
}

func TestConnPool_DialFailure(t *testing.T) {
	d := &fakeDialer{dialErr: errors.New("dial tcp: refused")}
	p := NewConnPool(d)

	_, err := p.Get(testAccount("a@x", 5))
	if err == nil {
		t.Fatalf("expected an error")
	}
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T", err)
	}
}

func TestConnPool_CloseAll(t *testing.T) {
	s1 := &fakeSession{}
	s2 := &fakeSession{}
	d := &fakeDialer{sessions: []*fakeSession{s1, s2}}
	p := NewConnPool(d)

	if _, err := p.Get(testAccount("a@x", 5)); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	if _, err := p.Get(testAccount("b@x", 5)); err != nil {
		t.Fatalf("Get b: %v", err)
	}

	p.CloseAll()
	if !s1.closed || !s2.closed {
		t.Fatalf("expected both sessions closed")
	}

	// usage survives CloseAll, only sessions are dropped
	p.IncrementUsage(testAccount("a@x", 5))
	if p.Usage("a@x") != 1 {
		t.Fatalf("usage lost across CloseAll")
	}
}
