package verification

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/campushub/notifier/internal/mail"
	"github.com/campushub/notifier/internal/observability/logger"
)

// Sender is the slice of the dispatcher the orchestrator needs.
type Sender interface {
	Send(recipients []string, subject, htmlBody, textBody string, cb func(mail.Result))
}

// CodeResult is the outcome for one requested email: whether the code
// mail was delivered, and which code was issued (empty when none was).
type CodeResult struct {
	Delivered bool
	Email     string
	Code      string
}

// Options tunes the orchestrator.
type Options struct {
	// Subject is the default mail subject.
	Subject string
	// SendTimeout bounds how long SendCodes waits for job completions.
	SendTimeout time.Duration
	// ResendCooldown rejects repeat requests for the same email inside
	// the window. Zero disables the throttle.
	ResendCooldown time.Duration
}

// Service generates verification codes, fans dispatch jobs out through
// the mail queue and reconciles the outcomes with the code store.
type Service struct {
	sender   Sender
	store    *CodeStore
	cooldown *gocache.Cache
	subject  string
	timeout  time.Duration
}

func NewService(sender Sender, store *CodeStore, opts Options) *Service {
	if opts.Subject == "" {
		opts.Subject = "Your verification code"
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = time.Minute
	}
	s := &Service{
		sender:  sender,
		store:   store,
		subject: opts.Subject,
		timeout: opts.SendTimeout,
	}
	if opts.ResendCooldown > 0 {
		s.cooldown = gocache.New(opts.ResendCooldown, 5*time.Minute)
	}
	return s
}

// SendCodes issues one code per email, submits one send job per email and
// blocks until every job reported in or the timeout elapsed. Results come
// back in input order. An email whose job did not complete in time gets a
// synthetic failure and its code is revoked: a code that may still
// arrive must not be usable.
func (s *Service) SendCodes(ctx context.Context, emails []string, subject string, timeout time.Duration) []CodeResult {
	if subject == "" {
		subject = s.subject
	}
	if timeout <= 0 {
		timeout = s.timeout
	}

	log := logger.From(ctx).With(logger.Component("Verification"))

	results := make(map[string]CodeResult, len(emails))
	issued := make(map[string]string, len(emails))
	done := make(chan CodeResult, len(emails))
	pending := 0

	for _, email := range emails {
		if s.cooldown != nil {
			if _, hit := s.cooldown.Get(email); hit {
				log.Info("resend throttled", logger.Email(email))
				results[email] = CodeResult{Delivered: false, Email: email}
				continue
			}
		}

		code, err := GenerateCode()
		if err != nil {
			log.Error("code generation failed", logger.Email(email), logger.Err(err))
			results[email] = CodeResult{Delivered: false, Email: email}
			continue
		}

		htmlBody, textBody, err := renderVerification(code, s.store.TTL())
		if err != nil {
			log.Error("template render failed", logger.Email(email), logger.Err(err))
			results[email] = CodeResult{Delivered: false, Email: email}
			continue
		}

		// Registered before dispatch so a fast verify cannot race the
		// store. Overwrites any earlier code for this email.
		s.store.Add(email, code)
		if s.cooldown != nil {
			s.cooldown.SetDefault(email, struct{}{})
		}
		issued[email] = code

		email, code := email, code
		s.sender.Send([]string{email}, subject, htmlBody, textBody, func(res mail.Result) {
			delivered := res.Delivered(email)
			if !delivered {
				// The recipient never got the code; revoke it so
				// nothing can verify against it.
				s.store.Remove(email)
				reason := res.Failed[email]
				if reason == "" {
					reason = "no account could deliver"
				}
				log.Warn("code mail not delivered",
					logger.Email(email),
					logger.String("reason", reason),
				)
			}
			done <- CodeResult{Delivered: delivered, Email: email, Code: code}
		})
		pending++
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

wait:
	for pending > 0 {
		select {
		case r := <-done:
			results[r.Email] = r
			pending--
		case <-timer.C:
			log.Warn("verification send timed out", logger.Count(pending))
			break wait
		case <-ctx.Done():
			log.Warn("verification send cancelled", logger.Count(pending))
			break wait
		}
	}

	// Jobs that never reported in become synthetic failures; their codes
	// are revoked even though the send may still complete.
	out := make([]CodeResult, 0, len(emails))
	for _, email := range emails {
		r, ok := results[email]
		if !ok {
			s.store.Remove(email)
			r = CodeResult{Delivered: false, Email: email, Code: issued[email]}
		}
		out = append(out, r)
	}
	return out
}

// VerifyCode checks a submitted code. A successful match consumes the
// code (single use, enforced inside the store).
func (s *Service) VerifyCode(email, code string) bool {
	return s.store.Verify(email, code)
}
