package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/campushub/notifier/internal/observability/logger"
	"github.com/campushub/notifier/internal/rate"
	"github.com/campushub/notifier/internal/verification"
)

// Handler serves the code issuance and verification API. Codes never
// appear in responses: callers learn delivery status only, the code
// travels by mail.
type Handler struct {
	Verification *verification.Service
	Limiter      rate.Limiter
}

type sendCodesRequest struct {
	Emails []string `json:"emails"`
}

type sendCodesResponse struct {
	Results []sendCodeStatus `json:"results"`
}

type sendCodeStatus struct {
	Email     string `json:"email"`
	Delivered bool   `json:"delivered"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

func (h *Handler) sendCodes(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req sendCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, stdhttp.StatusBadRequest, "invalid request body")
		return
	}
	emails := normalizeEmails(req.Emails)
	if len(emails) == 0 {
		writeErr(w, stdhttp.StatusBadRequest, "no recipients")
		return
	}

	if !h.rlOr429(w, r, "send") {
		return
	}

	results := h.Verification.SendCodes(r.Context(), emails, "", 0)
	resp := sendCodesResponse{Results: make([]sendCodeStatus, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, sendCodeStatus{
			Email:     res.Email,
			Delivered: res.Delivered,
		})
	}
	writeJSON(w, stdhttp.StatusOK, resp)
}

func (h *Handler) verifyCode(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, stdhttp.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeErr(w, stdhttp.StatusBadRequest, "email and code required")
		return
	}

	ok := h.Verification.VerifyCode(req.Email, req.Code)
	writeJSON(w, stdhttp.StatusOK, verifyResponse{Verified: ok})
}

// rlOr429 consumes a hit from the limiter and answers 429 with a
// Retry-After header when the window is exhausted. A limiter outage
// fails open.
func (h *Handler) rlOr429(w stdhttp.ResponseWriter, r *stdhttp.Request, op string) bool {
	if h.Limiter == nil {
		return true
	}
	res, err := h.Limiter.Allow(r.Context(), op)
	if err != nil {
		logger.L().Warn("rate limiter unavailable, allowing request", logger.Err(err))
		return true
	}
	if !res.Allowed {
		retry := int(res.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeErr(w, stdhttp.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.Contains(e, "@") {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w stdhttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
