package verification

import (
	"strings"
	"testing"
	"time"
)

func TestRenderVerification(t *testing.T) {
	html, text, err := renderVerification("428713", 15*time.Minute)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "428713") || !strings.Contains(text, "428713") {
		t.Fatalf("code missing from a body")
	}
	if !strings.Contains(html, "15 minutes") || !strings.Contains(text, "15 minutes") {
		t.Fatalf("ttl missing from a body")
	}
	if !strings.Contains(html, "<div") {
		t.Fatalf("html body lost its markup")
	}
}

func TestFormatTTL(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{time.Minute, "1 minute"},
		{15 * time.Minute, "15 minutes"},
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{90 * time.Minute, "90 minutes"},
	}
	for _, c := range cases {
		if got := formatTTL(c.d); got != c.want {
			t.Fatalf("formatTTL(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
