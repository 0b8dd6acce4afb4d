package verification

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"
	"time"
)

// Default verification-mail bodies. Kept embedded so the service works
// with zero template files on disk.

const verifyHTMLTmpl = `<div style="font-family:Arial,sans-serif; max-width:600px; margin:0 auto; padding:20px; border:1px solid #ddd; border-radius:5px;">
  <h2 style="color:#900023; text-align:center;">CampusHub</h2>
  <p>Hello!</p>
  <p>Your verification code is: <strong style="font-size:24px; color:#900023;">{{.Code}}</strong></p>
  <p>The code expires in {{.TTL}}. If you did not request it, please ignore this message.</p>
  <p style="font-size:12px; color:#666; margin-top:30px;">This is an automated message, please do not reply.</p>
</div>`

const verifyTextTmpl = `CampusHub

Your verification code is: {{.Code}}

The code expires in {{.TTL}}. If you did not request it, please ignore
this message.

This is an automated message, please do not reply.`

type verifyVars struct {
	Code string
	TTL  string
}

var (
	verifyHTML = htemplate.Must(htemplate.New("verify_html").Parse(verifyHTMLTmpl))
	verifyText = ttemplate.Must(ttemplate.New("verify_text").Parse(verifyTextTmpl))
)

// renderVerification produces the HTML and plain-text bodies for a code.
func renderVerification(code string, ttl time.Duration) (html, text string, err error) {
	vars := verifyVars{Code: code, TTL: formatTTL(ttl)}

	var hb bytes.Buffer
	if err := verifyHTML.Execute(&hb, vars); err != nil {
		return "", "", fmt.Errorf("verification: render html: %w", err)
	}
	var tb bytes.Buffer
	if err := verifyText.Execute(&tb, vars); err != nil {
		return "", "", fmt.Errorf("verification: render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}

// formatTTL prints a duration the way a human reads it in a mail body.
func formatTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d / time.Minute)
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
