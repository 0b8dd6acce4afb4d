package mail

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildMessage_Headers(t *testing.T) {
	msg := BuildMessage("CampusHub", "noreply@campushub.example", "student@uni.edu",
		"Your verification code", "<p>123456</p>", "123456")

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"From:",
		"CampusHub",
		"To: student@uni.edu",
		"Subject: Your verification code",
		"Content-Type: multipart/alternative",
		"text/plain",
		"text/html",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}

	// plain part must precede the html part so clients prefer html
	if strings.Index(raw, "text/plain") > strings.Index(raw, "text/html") {
		t.Fatalf("text part must come before the html alternative")
	}
}
